package workflow_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/yourorg/confluencectl/internal/confluence"
	"github.com/yourorg/confluencectl/internal/workflow"
)

type fakeSite struct {
	mu          sync.Mutex
	pageBody    string
	attachments []string
}

func (s *fakeSite) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		var resp any
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/rest/api/content/11":
			resp = map[string]any{"id": "11", "title": "Parent"}
		case r.Method == http.MethodGet && r.URL.Path == "/rest/api/content":
			resp = map[string]any{"results": []any{}}
		case r.Method == http.MethodPost && r.URL.Path == "/rest/api/content":
			var payload struct {
				Body struct {
					Storage struct {
						Value string `json:"value"`
					} `json:"storage"`
				} `json:"body"`
			}
			if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
				t.Fatalf("decode page: %v", err)
			}
			s.pageBody = payload.Body.Storage.Value
			resp = map[string]any{"id": "55", "title": "Note"}
		case r.Method == http.MethodGet && r.URL.Path == "/rest/api/content/55/child/attachment":
			resp = map[string]any{"results": []any{}}
		case r.Method == http.MethodPost && r.URL.Path == "/rest/api/content/55/child/attachment":
			if err := r.ParseMultipartForm(1 << 20); err != nil {
				t.Fatalf("parse multipart: %v", err)
			}
			_, hdr, err := r.FormFile("file")
			if err != nil {
				t.Fatalf("form file: %v", err)
			}
			s.attachments = append(s.attachments, hdr.Filename)
			resp = map[string]any{"results": []map[string]any{{"id": "att1"}}}
		default:
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.String())
		}
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
}

func newClient(t *testing.T, site *fakeSite) *confluence.Client {
	t.Helper()
	server := httptest.NewServer(site.handler(t))
	t.Cleanup(server.Close)

	client, err := confluence.NewClient(confluence.ClientConfig{Token: "tok", SiteURL: server.URL + "/"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	client.WithLimiter(rate.NewLimiter(rate.Inf, 0))
	client.WithSleeper(func(time.Duration) {})
	return client
}

func TestRunPublishesNote(t *testing.T) {
	dir := t.TempDir()
	note := filepath.Join(dir, "Note.md")
	if err := os.WriteFile(note, []byte("# Title\n\n![[Pasted image.png|300]]\n"), 0o600); err != nil {
		t.Fatalf("write note: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "Pasted image.png"), []byte("PNG"), 0o600); err != nil {
		t.Fatalf("write image: %v", err)
	}

	site := &fakeSite{}
	var out bytes.Buffer
	res, err := workflow.Run(context.Background(), &out, newClient(t, site), workflow.Options{
		MDPath: note, Title: "Note", ParentID: "11", SpaceKey: "DOC", UpdateIfExists: true,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if res.RunID == "" || res.CSFPath != filepath.Join(dir, "Note.csf") {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.SpaceFill == nil || len(res.SpaceFill.Renames) != 1 {
		t.Fatalf("space fill did not rename the image: %+v", res.SpaceFill)
	}
	want := `<ac:image ac:width="300"><ri:attachment ri:filename="Pasted-image.png"/></ac:image>`
	if !strings.Contains(site.pageBody, want) {
		t.Fatalf("page body missing image macro:\n%s", site.pageBody)
	}
	if len(site.attachments) != 1 || site.attachments[0] != "Pasted-image.png" {
		t.Fatalf("unexpected attachments: %v", site.attachments)
	}
	if res.Publish.Uploaded != 1 || res.Publish.PageID != "55" {
		t.Fatalf("unexpected publish report: %+v", res.Publish)
	}
	for _, banner := range []string{"Step 1: space fill", "Step 4: upload", "Workflow complete:"} {
		if !strings.Contains(out.String(), banner) {
			t.Fatalf("output missing %q:\n%s", banner, out.String())
		}
	}
}

func TestRunAbortsOnConvertFailure(t *testing.T) {
	site := &fakeSite{}
	_, err := workflow.Run(context.Background(), &bytes.Buffer{}, newClient(t, site), workflow.Options{
		MDPath: filepath.Join(t.TempDir(), "missing.md"), Title: "T", ParentID: "11", SpaceKey: "DOC",
	})
	step, ok := workflow.FailedStep(err)
	if !ok || step != workflow.StepConvert {
		t.Fatalf("FailedStep = %q, %v (err %v)", step, ok, err)
	}
	if site.pageBody != "" {
		t.Fatalf("nothing should be published")
	}
}
