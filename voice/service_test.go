package voice

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/lixenwraith/tonestep/service"
)

func TestServiceLoadsDirectory(t *testing.T) {
	dir := t.TempDir()
	for _, key := range []int{1, 7} {
		data := encodeWAV(t, 48000, 16, 1, []int{key})
		if err := os.WriteFile(filepath.Join(dir, fmt.Sprintf("%d.wav", key)), data, 0o644); err != nil {
			t.Fatal(err)
		}
	}

	store := NewStore(48000, nil)
	svc := NewService(store, dir, nil)
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer svc.Stop()

	if svc.Loaded() != 2 {
		t.Errorf("Expected 2 clips loaded, got %d", svc.Loaded())
	}
	if st := svc.Status(); st.State != service.StateRunning || st.Detail != "2 of 12 clips" {
		t.Errorf("Expected running with 2 clips, got %+v", st)
	}
}

func TestServiceEmptyDirectoryDegrades(t *testing.T) {
	store := NewStore(48000, nil)
	svc := NewService(store, t.TempDir(), nil)
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("Expected missing clips to be tolerated, got %v", err)
	}
	if st := svc.Status(); st.State != service.StateDegraded {
		t.Errorf("Expected degraded status, got %+v", st)
	}

	// Uploading a clip later recovers the service
	if err := store.Load(4, encodeWAV(t, 48000, 16, 1, []int{1})); err != nil {
		t.Fatal(err)
	}
	if st := svc.Status(); st.State != service.StateRunning {
		t.Errorf("Expected running after upload, got %+v", st)
	}
}

func TestServiceWithoutDirectory(t *testing.T) {
	svc := NewService(NewStore(0, nil), "", nil)
	if err := svc.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if st := svc.Status(); st.State != service.StateRunning || st.Detail != "no voice directory" {
		t.Errorf("Expected running without directory, got %+v", st)
	}
}
