package core

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/tablediff/tablediff/internal/config"
	"github.com/tablediff/tablediff/internal/tabular"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	cfg := &config.Config{}
	cfg.Engine.HistoryLimit = 50
	cfg.Engine.HistoryMaxLimit = 500

	svc, err := NewService(nil, cfg)
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	return svc
}

func TestNewService_RequiresConfig(t *testing.T) {
	if _, err := NewService(nil, nil); err == nil {
		t.Fatal("NewService(nil, nil) expected error")
	}
}

func TestParseSource(t *testing.T) {
	svc := newTestService(t)

	table, err := svc.ParseSource(context.Background(), Source{Text: "name,age\nJohn,25", Label: "p.csv"})
	if err != nil {
		t.Fatalf("ParseSource() error = %v", err)
	}
	if len(table.Rows) != 1 {
		t.Errorf("len(Rows) = %d, want 1", len(table.Rows))
	}
}

func TestRunFilter_ExcludeDefault(t *testing.T) {
	svc := newTestService(t)

	result, err := svc.RunFilter(context.Background(), FilterRequest{
		Left:   Source{Text: "id,name\n1,a\n2,b\n3,c", Label: "left.csv"},
		Right:  Source{Text: "id\n2", Label: "right.csv"},
		Column: "id",
	})
	if err != nil {
		t.Fatalf("RunFilter() error = %v", err)
	}

	if _, err := uuid.Parse(result.RunID); err != nil {
		t.Errorf("RunID = %q, want a valid UUID", result.RunID)
	}
	want := FilterSummary{Processed: 3, Kept: 2, Dropped: 1, DurationMS: result.Summary.DurationMS}
	if result.Summary != want {
		t.Errorf("Summary = %+v, want %+v", result.Summary, want)
	}
	if len(result.Rows) != 2 || result.Rows[0]["id"].Text() != "1" || result.Rows[1]["id"].Text() != "3" {
		t.Errorf("Rows = %v, want ids 1 and 3", result.Rows)
	}
	if len(result.Columns) != 2 {
		t.Errorf("Columns = %v, want the left dataset's columns", result.Columns)
	}
}

func TestRunFilter_IncludeMode(t *testing.T) {
	svc := newTestService(t)

	result, err := svc.RunFilter(context.Background(), FilterRequest{
		Left:   Source{Text: "id\n1\n2"},
		Right:  Source{Text: "id\n2"},
		Column: "id",
		Mode:   "include",
	})
	if err != nil {
		t.Fatalf("RunFilter() error = %v", err)
	}
	if len(result.Rows) != 1 || result.Rows[0]["id"].Text() != "2" {
		t.Errorf("Rows = %v, want just id 2", result.Rows)
	}
}

func TestRunFilter_UnknownModeRejected(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.RunFilter(context.Background(), FilterRequest{
		Left:   Source{Text: "id\n1"},
		Right:  Source{Text: "id\n1"},
		Column: "id",
		Mode:   "subtract",
	})
	if !errors.Is(err, tabular.ErrInvalidArgument) {
		t.Errorf("error = %v, want ErrInvalidArgument", err)
	}
}

func TestRunFilter_HeaderOnlyLeftIsInvalidData(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.RunFilter(context.Background(), FilterRequest{
		Left:   Source{Text: "id,name", Label: "empty.csv"},
		Right:  Source{Text: "id\n1"},
		Column: "id",
	})

	var pe *tabular.ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("error = %v, want *tabular.ParseError", err)
	}
	if pe.Kind != tabular.KindInvalidData {
		t.Errorf("Kind = %q, want %q", pe.Kind, tabular.KindInvalidData)
	}
	if pe.Label != "empty.csv" {
		t.Errorf("Label = %q, want %q", pe.Label, "empty.csv")
	}
}

func TestRunFilter_DefaultLabelsNameTheSide(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.RunFilter(context.Background(), FilterRequest{
		Left:   Source{Text: ""},
		Right:  Source{Text: "id\n1"},
		Column: "id",
	})

	var pe *tabular.ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("error = %v, want *tabular.ParseError", err)
	}
	if pe.Label != "left dataset" {
		t.Errorf("Label = %q, want %q", pe.Label, "left dataset")
	}
}

func TestRunCompare(t *testing.T) {
	svc := newTestService(t)

	result, err := svc.RunCompare(context.Background(), CompareRequest{
		Left:        Source{Text: "id,amount\n1,100\n2,200"},
		Right:       Source{Text: "id,amount\n1,100\n3,300"},
		KeyColumn:   "id",
		ValueColumn: "amount",
	})
	if err != nil {
		t.Fatalf("RunCompare() error = %v", err)
	}

	if _, err := uuid.Parse(result.RunID); err != nil {
		t.Errorf("RunID = %q, want a valid UUID", result.RunID)
	}
	want := tabular.Summary{Total: 3, Matched: 1, OnlyLeft: 1, OnlyRight: 1}
	if result.Summary != want {
		t.Errorf("Summary = %+v, want %+v", result.Summary, want)
	}
	if result.KeyColumn != "id" || result.ValueColumn != "amount" {
		t.Errorf("columns = %q/%q, want id/amount", result.KeyColumn, result.ValueColumn)
	}
	if result.DurationMS < 0 {
		t.Errorf("DurationMS = %d, want >= 0", result.DurationMS)
	}
}

func TestRunCompare_ParseErrorPropagatesVerbatim(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.RunCompare(context.Background(), CompareRequest{
		Left:        Source{Text: "id,id\n1,2", Label: "dup.csv"},
		Right:       Source{Text: "id,v\n1,2"},
		KeyColumn:   "id",
		ValueColumn: "v",
	})

	var pe *tabular.ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("error = %v, want *tabular.ParseError", err)
	}
	if pe.Kind != tabular.KindDuplicateHeaders {
		t.Errorf("Kind = %q, want %q", pe.Kind, tabular.KindDuplicateHeaders)
	}
}

func TestHistoryDisabledWithoutPool(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if svc.HistoryEnabled() {
		t.Error("HistoryEnabled() = true with nil pool, want false")
	}
	if err := svc.EnsureSchema(ctx); err != nil {
		t.Errorf("EnsureSchema() error = %v, want nil no-op", err)
	}
	if _, err := svc.ListRuns(ctx, 10); !errors.Is(err, ErrHistoryDisabled) {
		t.Errorf("ListRuns() error = %v, want ErrHistoryDisabled", err)
	}
	if _, err := svc.GetRun(ctx, uuid.NewString()); !errors.Is(err, ErrHistoryDisabled) {
		t.Errorf("GetRun() error = %v, want ErrHistoryDisabled", err)
	}
}

func TestParseFilterMode(t *testing.T) {
	cases := []struct {
		in      string
		want    tabular.FilterMode
		wantErr bool
	}{
		{"", tabular.ModeExclude, false},
		{"exclude", tabular.ModeExclude, false},
		{"include", tabular.ModeInclude, false},
		{" Include ", tabular.ModeInclude, false},
		{"union", "", true},
	}

	for _, tc := range cases {
		got, err := parseFilterMode(tc.in)
		if tc.wantErr {
			if !errors.Is(err, tabular.ErrInvalidArgument) {
				t.Errorf("parseFilterMode(%q) error = %v, want ErrInvalidArgument", tc.in, err)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Errorf("parseFilterMode(%q) = %q, %v, want %q", tc.in, got, err, tc.want)
		}
	}
}
