package prompt

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/raphaelgruber/beethoven-go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memSettings struct {
	values map[string]string
	reads  int
	err    error
}

func (m *memSettings) GetSetting(_ context.Context, key string) (string, bool, error) {
	m.reads++
	if m.err != nil {
		return "", false, m.err
	}
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *memSettings) SeedSettings(_ context.Context, defaults map[string]string) (int, error) {
	created := 0
	for k, v := range defaults {
		if _, ok := m.values[k]; ok {
			continue
		}
		m.values[k] = v
		created++
	}
	return created, nil
}

func TestKeyForRole(t *testing.T) {
	tests := []struct {
		role models.EmployeeRole
		want string
	}{
		{models.RoleTeacher, "prompt_teacher"},
		{models.RoleSalesManager, "prompt_sales"},
		{models.EmployeeRole("intern"), "prompt_sales"},
		{models.EmployeeRole(""), "prompt_sales"},
	}
	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			assert.Equal(t, tt.want, KeyForRole(tt.role))
			assert.Equal(t, KeyForRole(tt.role), KeyForRole(tt.role))
		})
	}
}

func TestResolve(t *testing.T) {
	store := &memSettings{values: map[string]string{
		KeyTeacher: "Оцени урок преподавателя.",
		KeySales:   "Оцени звонок менеджера.",
	}}
	r := NewResolver(store)

	got, err := r.Resolve(context.Background(), models.RoleTeacher)
	require.NoError(t, err)
	assert.Equal(t, "Оцени урок преподавателя.", got)

	got, err = r.Resolve(context.Background(), models.RoleSalesManager)
	require.NoError(t, err)
	assert.Equal(t, "Оцени звонок менеджера.", got)
}

func TestResolveReadsFreshEachCall(t *testing.T) {
	store := &memSettings{values: map[string]string{KeyTeacher: "v1"}}
	r := NewResolver(store)

	first, err := r.Resolve(context.Background(), models.RoleTeacher)
	require.NoError(t, err)
	store.values[KeyTeacher] = "v2"
	second, err := r.Resolve(context.Background(), models.RoleTeacher)
	require.NoError(t, err)

	assert.Equal(t, "v1", first)
	assert.Equal(t, "v2", second)
	assert.Equal(t, 2, store.reads)
}

func TestResolveMissing(t *testing.T) {
	r := NewResolver(&memSettings{values: map[string]string{KeyTeacher: "only teacher"}})

	_, err := r.Resolve(context.Background(), models.RoleSalesManager)
	assert.ErrorIs(t, err, ErrConfigMissing)
	assert.Contains(t, err.Error(), KeySales)
}

func TestResolveEmptyValueIsPresent(t *testing.T) {
	r := NewResolver(&memSettings{values: map[string]string{KeySales: ""}})

	got, err := r.Resolve(context.Background(), models.RoleSalesManager)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestResolveStoreError(t *testing.T) {
	boom := errors.New("connection refused")
	r := NewResolver(&memSettings{err: boom})

	_, err := r.Resolve(context.Background(), models.RoleTeacher)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrConfigMissing)
}

func TestParseSeed(t *testing.T) {
	data := []byte("settings:\n  prompt_teacher: |\n    Оцени урок.\n  prompt_sales: Оцени звонок.\n")

	got, err := ParseSeed(data)
	require.NoError(t, err)
	assert.Equal(t, "Оцени урок.\n", got[KeyTeacher])
	assert.Equal(t, "Оцени звонок.", got[KeySales])

	_, err = ParseSeed([]byte("settings: [unclosed"))
	assert.Error(t, err)

	empty, err := ParseSeed([]byte("other: 1\n"))
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestSeedFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompts.yaml")
	require.NoError(t, os.WriteFile(path, []byte("settings:\n  prompt_teacher: default teacher\n  prompt_sales: default sales\n"), 0o644))

	store := &memSettings{values: map[string]string{KeyTeacher: "operator edit"}}
	created, err := SeedFromFile(context.Background(), path, store, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, created)
	assert.Equal(t, "operator edit", store.values[KeyTeacher])
	assert.Equal(t, "default sales", store.values[KeySales])
}

func TestSeedFromMissingFile(t *testing.T) {
	store := &memSettings{values: map[string]string{}}
	created, err := SeedFromFile(context.Background(), filepath.Join(t.TempDir(), "nope.yaml"), store, nil)
	require.NoError(t, err)
	assert.Zero(t, created)
}

func TestShippedPromptsFile(t *testing.T) {
	data, err := os.ReadFile(filepath.Join("..", "..", "prompts.yaml"))
	require.NoError(t, err)

	defaults, err := ParseSeed(data)
	require.NoError(t, err)
	assert.NotEmpty(t, defaults[KeyTeacher])
	assert.NotEmpty(t, defaults[KeySales])
}
