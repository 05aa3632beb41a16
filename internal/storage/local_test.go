package storage

import (
	"io"
	"strings"
	"testing"
)

func TestLocalProviderRoundTrip(t *testing.T) {
	client := NewWithProvider(NewLocalProvider(t.TempDir()), "datasets", "incoming/")

	if err := client.UploadFile("incoming/b.csv", strings.NewReader("track_name\n"), "text/csv"); err != nil {
		t.Fatalf("upload failed: %v", err)
	}
	client.UploadFile("incoming/a.csv", strings.NewReader("track_name\n"), "text/csv")
	client.UploadFile("incoming/notes.txt", strings.NewReader("skip me"), "text/plain")
	client.UploadFile("csv/main.csv", strings.NewReader("track_name\n"), "text/csv")

	keys, err := client.ListIngestFiles()
	if err != nil {
		t.Fatalf("ListIngestFiles failed: %v", err)
	}
	if len(keys) != 2 || keys[0] != "incoming/a.csv" || keys[1] != "incoming/b.csv" {
		t.Fatalf("unexpected ingest listing: %v", keys)
	}

	obj, err := client.DownloadFile("csv/main.csv")
	if err != nil {
		t.Fatalf("download failed: %v", err)
	}
	data, _ := io.ReadAll(obj.Body)
	obj.Body.Close()
	if string(data) != "track_name\n" {
		t.Errorf("unexpected content %q", data)
	}

	ok, err := client.Exists("csv/main.csv")
	if err != nil || !ok {
		t.Errorf("Exists(csv/main.csv) = %v, %v; want true", ok, err)
	}

	if err := client.DeleteFile("csv/main.csv"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	ok, _ = client.Exists("csv/main.csv")
	if ok {
		t.Error("file should be gone after delete")
	}
}

func TestLocalProviderMissingBucket(t *testing.T) {
	client := NewWithProvider(&LocalProvider{RootPath: t.TempDir()}, "nope", "incoming/")

	keys, err := client.ListIngestFiles()
	if err != nil {
		t.Fatalf("missing bucket should list as empty, got %v", err)
	}
	if len(keys) != 0 {
		t.Errorf("expected no keys, got %v", keys)
	}
}

func TestClientMoveFile(t *testing.T) {
	client := NewWithProvider(NewLocalProvider(t.TempDir()), "datasets", "incoming/")
	client.UploadFile("incoming/bad.csv", strings.NewReader("oops"), "text/csv")

	if err := client.MoveFile("incoming/bad.csv", "failed/bad.csv"); err != nil {
		t.Fatalf("move failed: %v", err)
	}
	if ok, _ := client.Exists("incoming/bad.csv"); ok {
		t.Error("source should be gone after move")
	}
	obj, err := client.DownloadFile("failed/bad.csv")
	if err != nil {
		t.Fatalf("moved file missing: %v", err)
	}
	defer obj.Body.Close()
	data, _ := io.ReadAll(obj.Body)
	if string(data) != "oops" {
		t.Errorf("moved content = %q", data)
	}
	if client.IngestPrefix() != "incoming/" {
		t.Errorf("IngestPrefix = %q", client.IngestPrefix())
	}
}
