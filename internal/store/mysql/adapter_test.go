package mysql

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/danielbachhuber/host-check-command/internal/store/connector"
)

func TestAdapter_ConnectRefused(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// port 1 is reserved and never has a MySQL server behind it
	a := NewAdapter(Config{Host: "127.0.0.1:1", User: "wp", DBName: "wp", Timeout: 2 * time.Second})
	_, err := a.Connect(ctx)
	if !errors.Is(err, connector.ErrDBConnect) {
		t.Fatalf("expected ErrDBConnect, got %v", err)
	}
	if errors.Is(err, connector.ErrDBSelect) {
		t.Fatalf("a refused connection is not a select error")
	}
}
