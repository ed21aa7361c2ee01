package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const header = "name,current_party,current_district,current_chamber\n"

func TestRunWritesEachStateAndReportsFailures(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		switch r.URL.Path {
		case "/ak.csv":
			_, _ = w.Write([]byte(header + "Lisa Murkowski Jr,Republican,A,upper\n"))
		case "/dc.csv":
			_, _ = w.Write([]byte(header + "Phil Mendelson,Democratic,Chairman,legislature\n"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	out := t.TempDir()
	err := run(context.Background(), options{
		out:      out,
		base:     srv.URL,
		states:   []string{"AK", "dc", "zz"},
		workers:  2,
		interval: time.Millisecond,
		timeout:  5 * time.Second,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "zz")
	assert.EqualValues(t, 3, hits.Load())

	b, err := os.ReadFile(filepath.Join(out, "ak.json"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"upper":[{"name":"Lisa Murkowski Jr","party":"Republican","district":"A"}],"lower":[]}`, string(b))
	_, err = os.Stat(filepath.Join(out, "dc.json"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(out, "zz.json"))
	assert.True(t, os.IsNotExist(err))
}

func TestRootCmdFlags(t *testing.T) {
	cmd := newRootCmd()
	require.NoError(t, cmd.ParseFlags([]string{"--states", "vt,ny", "--workers", "4"}))
	states, err := cmd.Flags().GetStringSlice("states")
	require.NoError(t, err)
	assert.Equal(t, "vt,ny", strings.Join(states, ","))
	w, _ := cmd.Flags().GetInt("workers")
	assert.Equal(t, 4, w)
}
