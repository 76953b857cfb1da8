package app

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/rovshanmuradov/whirlpool-positions/internal/config"
	"github.com/rovshanmuradov/whirlpool-positions/internal/domain"
	"github.com/rovshanmuradov/whirlpool-positions/internal/events"
	"github.com/rovshanmuradov/whirlpool-positions/internal/utils/metrics"
)

func TestSimulationRunsFullLifecycle(t *testing.T) {
	reg := prometheus.NewRegistry()
	sim := NewSimulation(config.Default(), metrics.NewCollectorWith(reg), zaptest.NewLogger(t))

	report, err := sim.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, domain.StageClosed, report.Stage)
	require.NotNil(t, report.Metadata)
	assert.Equal(t, "OWP", report.Metadata.Symbol)
	assert.Len(t, report.Owners, 2)
	assert.False(t, report.RewardVault.IsZero())

	assert.Equal(t, map[events.EventType]int{
		events.PositionOpened:       1,
		events.PositionFrozen:       1,
		events.PositionThawed:       1,
		events.PositionTransferred:  1,
		events.PositionClosed:       1,
		events.HoldingAccountClosed: 1,
		events.RewardInitialized:    1,
	}, report.Events)

	count, err := testutil.GatherAndCount(reg, "whirlpool_positions_operations_total")
	require.NoError(t, err)
	assert.Positive(t, count)
}

func TestSimulationRejectsBadUpdateAuthority(t *testing.T) {
	cfg := config.Default()
	cfg.Metadata.UpdateAuthority = "not-a-key"

	_, err := NewSimulation(cfg, metrics.NewCollectorWith(nil), zap.NewNop()).Run(context.Background())
	assert.Error(t, err)
}

func TestSimulationWritesAuditLog(t *testing.T) {
	cfg := config.Default()
	cfg.AuditFile = filepath.Join(t.TempDir(), "events.csv")

	_, err := NewSimulation(cfg, metrics.NewCollectorWith(nil), zap.NewNop()).Run(context.Background())
	require.NoError(t, err)

	data, err := os.ReadFile(cfg.AuditFile)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Len(t, lines, 8)
	assert.True(t, strings.HasPrefix(lines[0], "timestamp,event,"))
}
