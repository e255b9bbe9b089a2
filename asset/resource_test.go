package asset

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func TestLocalResource(t *testing.T) {
	_, thisFile, _, _ := runtime.Caller(0)
	res, err := NewResource(thisFile, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer res.Close()

	if res.IsRemote() {
		t.Fatal("expected local resource not to be remote")
	}
	if ext := res.Ext(); ext != ".go" {
		t.Fatalf("expected resource extension to be .go; got %q", ext)
	}
}

func TestHttpResource(t *testing.T) {
	_, thisFile, _, _ := runtime.Caller(0)
	thisDir := filepath.Dir(thisFile)

	server := httptest.NewServer(http.FileServer(http.Dir(thisDir)))
	defer server.Close()

	fetchUrl := server.URL + "/" + filepath.Base(thisFile)
	res, err := NewResource(fetchUrl, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer res.Close()

	if !res.IsRemote() {
		t.Fatal("expected http resource to be remote")
	}

	fetchUrl = server.URL + "/file-not-found.foo"
	expError := fmt.Sprintf("resource: could not fetch '%s': status %d", fetchUrl, 404)
	_, err = NewResource(fetchUrl, nil)
	if err == nil || err.Error() != expError {
		t.Fatalf("expected to get: %s; got %v", expError, err)
	}
}

func TestRelativeRemoteResources(t *testing.T) {
	serverHits := 0
	serverFn := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		serverHits++
		switch r.URL.Path {
		case "/scenes/cornell.txt", "/scenes/models/bunny.obj":
			w.Write([]byte("OK"))
		default:
			http.NotFound(w, r)
		}
	})
	server := httptest.NewServer(serverFn)
	defer server.Close()

	sceneRes, err := NewResource(server.URL+"/scenes/cornell.txt", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer sceneRes.Close()
	meshRes, err := NewResource("models/bunny.obj", sceneRes)
	if err != nil {
		t.Fatal(err)
	}
	defer meshRes.Close()

	if serverHits != 2 {
		t.Fatalf("expected server to receive 2 requests; got %d", serverHits)
	}
}

func TestRelativeLocalResource(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "models"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "scene.txt"), []byte("scene"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "models", "mesh.obj"), []byte("mesh"), 0644); err != nil {
		t.Fatal(err)
	}

	sceneRes, err := NewResource(filepath.Join(dir, "scene.txt"), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer sceneRes.Close()

	meshRes, err := NewResource("models/mesh.obj", sceneRes)
	if err != nil {
		t.Fatal(err)
	}
	defer meshRes.Close()

	data, err := io.ReadAll(meshRes)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "mesh" {
		t.Fatalf("expected to read relative mesh contents; got %q", string(data))
	}
}

func TestUnsupportedResourceScheme(t *testing.T) {
	expError := "resource: unsupported scheme 'gopher'"
	_, err := NewResource("gopher://digging.go", nil)
	if err == nil || err.Error() != expError {
		t.Fatalf("expected to get: %s; got %v", expError, err)
	}
}

func TestResourceFromStream(t *testing.T) {
	res := NewResourceFromStream("embedded.txt", strings.NewReader("payload"))
	defer res.Close()

	data, err := io.ReadAll(res)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "payload" {
		t.Fatalf("expected to read stream payload; got %q", string(data))
	}
	if res.Path() != "embedded.txt" {
		t.Fatalf("expected resource path to be embedded.txt; got %q", res.Path())
	}
}
