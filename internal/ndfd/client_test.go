package ndfd

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestClientResolve_Published(t *testing.T) {
	var probedPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		probedPath = r.URL.Path
		if strings.HasSuffix(r.URL.Path, ".html") {
			w.WriteHeader(http.StatusOK)
			return
		}
		t.Errorf("unexpected request %s", r.URL.Path)
	}))
	defer srv.Close()

	opened := ""
	open := func(_ context.Context, url string) (Dataset, error) {
		opened = url
		return &fakeDataset{}, nil
	}

	client := NewClient(srv.URL, open)
	ds, probe, err := client.Resolve(context.Background(), "2020-06-17 12:00")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if ds == nil {
		t.Fatal("Resolve returned nil dataset for a published run")
	}
	if probe.HTTPStatus != http.StatusOK {
		t.Errorf("probe status = %d, want 200", probe.HTTPStatus)
	}

	wantPath := "/202006/20200617/2020061712ds.midatlan.oper.bin.html"
	if probedPath != wantPath {
		t.Errorf("probed %q, want %q", probedPath, wantPath)
	}
	if !strings.HasSuffix(opened, "/202006/20200617/2020061712ds.midatlan.oper.bin") {
		t.Errorf("opened %q, want the .bin resource", opened)
	}
}

func TestClientResolve_NotPublished(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	openCalls := 0
	open := func(_ context.Context, _ string) (Dataset, error) {
		openCalls++
		return &fakeDataset{}, nil
	}

	client := NewClient(srv.URL, open)
	ds, probe, err := client.Resolve(context.Background(), "2020-06-17 12:00")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if ds != nil {
		t.Error("Resolve returned a dataset for an unpublished run")
	}
	if probe.HTTPStatus != http.StatusNotFound {
		t.Errorf("probe status = %d, want 404", probe.HTTPStatus)
	}
	if openCalls != 0 {
		t.Errorf("opener called %d times, want 0: a failed probe must not open the resource", openCalls)
	}
}

func TestClientResolve_MalformedTimestamp(t *testing.T) {
	client := NewClient("http://example.invalid", nil)
	if _, _, err := client.Resolve(context.Background(), "yesterday"); err == nil {
		t.Fatal("Resolve with malformed timestamp: want error")
	}
}
