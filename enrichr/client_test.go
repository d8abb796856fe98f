package enrichr

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const exportTSV = "Term\tOverlap\tP-value\tAdjusted P-value\tOld P-value\tOld Adjusted P-value\tOdds Ratio\tCombined Score\tGenes\n" +
	"Cell cycle\t3/120\t0.0001\t0.002\t0\t0\t25.5\t210.3\tCDK1;CCNB1;MKI67\n" +
	"Apoptosis\t2/80\t0.01\t0.05\t0\t0\t8.1\t37.2\tBAX;TP53\n"

func newTestServer(t *testing.T) (*httptest.Server, *[]string) {
	t.Helper()
	var libraries []string
	mux := http.NewServeMux()
	mux.HandleFunc("/addList", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("addList method = %s", r.Method)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if got := r.FormValue("list"); got != "CDK1\nTP53" {
			t.Errorf("list = %q", got)
		}
		fmt.Fprint(w, `{"userListId": 42, "shortId": "abc"}`)
	})
	mux.HandleFunc("/export", func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("userListId"); got != "42" {
			t.Errorf("userListId = %q", got)
		}
		libraries = append(libraries, r.URL.Query().Get("backgroundType"))
		fmt.Fprint(w, exportTSV)
	})
	mux.HandleFunc("/datasetStatistics", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"statistics":[{"libraryName":"KEGG_2021_Human","numTerms":320},{"libraryName":"GO_Biological_Process_2023"}]}`)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, &libraries
}

func TestEnrich(t *testing.T) {
	server, libraries := newTestServer(t)
	client := NewClient(server.URL+"/", 0)

	results, err := client.Enrich(context.Background(), []string{"CDK1", "TP53"}, []string{"KEGG_2021_Human", "MSigDB_Hallmark_2020"})
	if err != nil {
		t.Fatalf("Enrich: %v", err)
	}

	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(results))
	}
	if results[0].GeneSet != "KEGG_2021_Human" || results[2].GeneSet != "MSigDB_Hallmark_2020" {
		t.Errorf("gene sets = %s, %s", results[0].GeneSet, results[2].GeneSet)
	}
	if len(*libraries) != 2 {
		t.Errorf("expected 2 exports, got %v", *libraries)
	}

	first := results[0]
	if first.Term != "Cell cycle" || first.Overlap != "3/120" {
		t.Errorf("unexpected first result %+v", first)
	}
	if first.AdjustedPValue != 0.002 || first.CombinedScore != 210.3 {
		t.Errorf("unexpected scores %+v", first)
	}
	if len(first.Genes) != 3 || first.Genes[2] != "MKI67" {
		t.Errorf("genes = %v", first.Genes)
	}
}

func TestLibraries(t *testing.T) {
	server, _ := newTestServer(t)
	names, err := NewClient(server.URL, 0).Libraries(context.Background())
	if err != nil {
		t.Fatalf("Libraries: %v", err)
	}
	if len(names) != 2 || names[0] != "KEGG_2021_Human" {
		t.Errorf("libraries = %v", names)
	}
}

func TestAddList_Empty(t *testing.T) {
	_, err := NewClient("http://unused.invalid", 0).AddList(context.Background(), nil, "")
	if !errors.Is(err, ErrEmptyGeneList) {
		t.Fatalf("expected ErrEmptyGeneList, got %v", err)
	}
}

func TestAddList_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := NewClient(server.URL, 0).AddList(context.Background(), []string{"TP53"}, "test")
	if err == nil || !strings.Contains(err.Error(), "503") {
		t.Fatalf("expected API error 503, got %v", err)
	}
}

func TestParseResults_MissingColumn(t *testing.T) {
	_, err := ParseResults(strings.NewReader("Term\tOverlap\nA\t1/2\n"))
	if !errors.Is(err, ErrMalformedExport) {
		t.Fatalf("expected ErrMalformedExport, got %v", err)
	}
}

func TestParseResults_BadNumber(t *testing.T) {
	bad := strings.Replace(exportTSV, "0.0001", "n/a", 1)
	_, err := ParseResults(strings.NewReader(bad))
	if !errors.Is(err, ErrMalformedExport) {
		t.Fatalf("expected ErrMalformedExport, got %v", err)
	}
}

func TestParseResults_Empty(t *testing.T) {
	results, err := ParseResults(strings.NewReader(""))
	if err != nil || len(results) != 0 {
		t.Fatalf("expected no results, got %v, %v", results, err)
	}
}

func TestTopByAdjustedP(t *testing.T) {
	results := []Result{
		{Term: "a", AdjustedPValue: 0.5},
		{Term: "b", AdjustedPValue: 0.01},
		{Term: "c", AdjustedPValue: 0.5},
		{Term: "d", AdjustedPValue: 0.001},
	}
	top := TopByAdjustedP(results, 3)
	got := []string{top[0].Term, top[1].Term, top[2].Term}
	want := []string{"d", "b", "a"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
	if len(TopByAdjustedP(results, 10)) != 4 {
		t.Error("n above length should return everything")
	}
	if results[0].Term != "a" {
		t.Error("input was reordered")
	}
}

func TestNegLog10AdjustedP(t *testing.T) {
	if got := (Result{AdjustedPValue: 0.01}).NegLog10AdjustedP(); math.Abs(got-2) > 1e-12 {
		t.Errorf("got %g, want 2", got)
	}
	if got := (Result{}).NegLog10AdjustedP(); !math.IsInf(got, 1) {
		t.Errorf("zero p-value should give +Inf, got %g", got)
	}
}

func TestBaseURL(t *testing.T) {
	if base, err := BaseURL("Mouse"); err != nil || base != DefaultBaseURL {
		t.Errorf("mouse = %q, %v", base, err)
	}
	if _, err := BaseURL("martian"); !errors.Is(err, ErrUnknownOrganism) {
		t.Errorf("expected ErrUnknownOrganism, got %v", err)
	}
}
