package main

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/shopflow/internal/storage/postgres"
)

func noEnv(string) (string, bool) { return "", false }

func TestParseArgs(t *testing.T) {
	opts, err := parseArgs([]string{"-direction", " DOWN ", "-steps", "2", "-dsn", " postgres://x "}, noEnv)
	require.NoError(t, err)
	assert.Equal(t, options{direction: "down", steps: 2, dsn: "postgres://x"}, opts)

	opts, err = parseArgs(nil, func(key string) (string, bool) {
		return "postgres://from-env", key == envPostgresDSN
	})
	require.NoError(t, err)
	assert.Equal(t, "up", opts.direction)
	assert.Equal(t, "postgres://from-env", opts.dsn)
}

func TestParseArgs_Errors(t *testing.T) {
	cases := map[string][]string{
		"missing dsn":       nil,
		"bad direction":     {"-direction", "sideways", "-dsn", "postgres://x"},
		"negative steps":    {"-steps", "-1", "-dsn", "postgres://x"},
		"unknown flag":      {"-force"},
		"steps not integer": {"-steps", "all", "-dsn", "postgres://x"},
	}
	for name, args := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := parseArgs(args, noEnv)
			assert.Error(t, err)
		})
	}
}

type fakeMigrator struct {
	upSteps, downSteps []int
	err                error
	status             postgres.MigrationStatus
}

func (f *fakeMigrator) MigrateUp(_ context.Context, steps int) error {
	f.upSteps = append(f.upSteps, steps)
	return f.err
}

func (f *fakeMigrator) MigrateDown(_ context.Context, steps int) error {
	f.downSteps = append(f.downSteps, steps)
	return f.err
}

func (f *fakeMigrator) Status(context.Context) (postgres.MigrationStatus, error) {
	return f.status, nil
}

func TestRun(t *testing.T) {
	m := &fakeMigrator{status: postgres.MigrationStatus{Version: 3, Applied: 3}}
	var out bytes.Buffer

	require.NoError(t, run(context.Background(), m, options{direction: "up"}, &out))
	assert.Equal(t, []int{0}, m.upSteps)
	assert.Equal(t, "migrate up ok: version=3 applied=3 pending=0\n", out.String())

	out.Reset()
	require.NoError(t, run(context.Background(), m, options{direction: "status"}, &out))
	assert.Empty(t, m.downSteps)
	assert.Contains(t, out.String(), "migrate status ok")
}

func TestRun_PropagatesMigrationError(t *testing.T) {
	m := &fakeMigrator{err: errors.New("lock timeout")}
	err := run(context.Background(), m, options{direction: "down", steps: 1}, &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "migrate down failed")
	assert.Equal(t, []int{1}, m.downSteps)
}
