package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/itsbohara/anchor/internal/models"
	"github.com/itsbohara/anchor/internal/testutil"
)

func startServer(t *testing.T) (string, string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	cfg := NewDefaultConfig()
	cfg.Storage.Path = filepath.Join(t.TempDir(), "data.json")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, WithConfig(cfg), WithLogger(testutil.Logger()), WithListener(ln))
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("Run returned %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Error("Run did not stop")
		}
	})

	base := "http://" + ln.Addr().String()
	testutil.Eventually(t, 2*time.Second, 20*time.Millisecond, func() bool {
		resp, err := http.Get(base + "/health/live")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, "server never became live")
	return base, cfg.Storage.Path
}

func TestRun_ServesAPIAndPersists(t *testing.T) {
	base, dataFile := startServer(t)

	resp, err := http.Get(base + "/health/ready")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("ready = %d", resp.StatusCode)
	}

	body, _ := json.Marshal(models.ToPayload("", models.Draft{ReferenceName: "Anchor", AbsolutePath: "/tmp/a"}))
	resp, err = http.Post(base+"/api/references", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("add = %d", resp.StatusCode)
	}

	data, err := os.ReadFile(dataFile)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(data, []byte(`"referenceName": "Anchor"`)) {
		t.Errorf("data file = %s", data)
	}
}

func TestRun_RequiresConfig(t *testing.T) {
	if err := Run(context.Background()); err == nil {
		t.Error("expected error without config")
	}
}
