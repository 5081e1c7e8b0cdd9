package operator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type noopOperator struct {
	name string
}

func (o *noopOperator) Name() string                        { return o.name }
func (o *noopOperator) Configure(map[string]any) error      { return nil }
func (o *noopOperator) Run(_ context.Context, s Sample) (Sample, error) {
	return s, nil
}

func TestRegisterAndLookup(t *testing.T) {
	Register("test_noop", func() Operator { return &noopOperator{name: "test_noop"} })

	op, err := Lookup("test_noop")
	require.NoError(t, err)
	assert.Equal(t, "test_noop", op.Name())

	// Each lookup returns a fresh instance.
	other, err := Lookup("test_noop")
	require.NoError(t, err)
	assert.NotSame(t, op, other)
}

func TestLookupUnknown(t *testing.T) {
	_, err := Lookup("does_not_exist")
	assert.ErrorContains(t, err, "unknown operator")
}

func TestRegisterDuplicatePanics(t *testing.T) {
	Register("test_dup", func() Operator { return &noopOperator{name: "test_dup"} })
	assert.Panics(t, func() {
		Register("test_dup", func() Operator { return &noopOperator{name: "test_dup"} })
	})
}

func TestNames(t *testing.T) {
	Register("test_names_b", func() Operator { return &noopOperator{name: "test_names_b"} })
	Register("test_names_a", func() Operator { return &noopOperator{name: "test_names_a"} })

	names := Names()
	assert.Contains(t, names, "test_names_a")
	assert.Contains(t, names, "test_names_b")
	assert.IsIncreasing(t, names)
}

func TestSampleString(t *testing.T) {
	s := Sample{
		KeyFilePath: "/data/cases.csv",
		KeyFileSize: 1024, // not a string
		KeyText:     "",
	}

	v, ok := s.String(KeyFilePath)
	assert.True(t, ok)
	assert.Equal(t, "/data/cases.csv", v)

	_, ok = s.String(KeyFileSize)
	assert.False(t, ok)

	_, ok = s.String(KeyText)
	assert.False(t, ok, "empty string treated as missing")

	_, ok = s.String("absent")
	assert.False(t, ok)
}

func TestSampleClone(t *testing.T) {
	s := Sample{KeyFilePath: "/data/cases.csv"}
	c := s.Clone()
	c[KeyFilePath] = "/other.csv"
	assert.Equal(t, "/data/cases.csv", s[KeyFilePath])
}
