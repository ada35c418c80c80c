package log

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew_Level(t *testing.T) {
	l, err := New("warn")
	require.NoError(t, err)
	require.False(t, l.Core().Enabled(zapcore.InfoLevel))
	require.True(t, l.Core().Enabled(zapcore.WarnLevel))
}

func TestNew_BadLevelFallsBack(t *testing.T) {
	l, err := New("loud")
	require.NoError(t, err)
	require.True(t, l.Core().Enabled(zapcore.InfoLevel))
}

func TestEmail_NormalizesAndHides(t *testing.T) {
	a, b := Email("Ann@X.com "), Email("ann@x.com")
	require.Equal(t, a.String, b.String)
	require.NotContains(t, a.String, "ann")
	require.Len(t, a.String, 16)
}
