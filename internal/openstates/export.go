package openstates

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"rep-lookup/internal/dataset"
)

// Fetch downloads and converts the CSV for one jurisdiction.
func Fetch(ctx context.Context, src dataset.Source, state string) (Summary, []byte, error) {
	state = strings.ToLower(strings.TrimSpace(state))
	rc, err := src.Fetch(ctx, state+".csv")
	if err != nil {
		return Summary{}, nil, fmt.Errorf("fetch %s: %w", state, err)
	}
	defer rc.Close()
	roster, err := Convert(rc)
	if err != nil {
		return Summary{}, nil, fmt.Errorf("convert %s: %w", state, err)
	}
	b, err := json.Marshal(roster)
	if err != nil {
		return Summary{}, nil, err
	}
	return Summary{State: state, Upper: len(roster.Upper), Lower: len(roster.Lower)}, b, nil
}

type Summary struct {
	State string
	Upper int
	Lower int
}

// WriteFile replaces dir/<state>.json atomically so the server never reads a partial document.
func WriteFile(dir, state string, doc []byte) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	final := filepath.Join(dir, strings.ToLower(state)+".json")
	tmp, err := os.CreateTemp(dir, "."+strings.ToLower(state)+"-*.json")
	if err != nil {
		return "", err
	}
	if _, err := tmp.Write(doc); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return "", err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return "", err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		_ = os.Remove(tmp.Name())
		return "", err
	}
	if err := os.Rename(tmp.Name(), final); err != nil {
		_ = os.Remove(tmp.Name())
		return "", err
	}
	return final, nil
}
