package file_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/canopy"
	"github.com/aretw0/canopy/internal/testutils"
	"github.com/aretw0/canopy/pkg/adapters/file"
	"github.com/aretw0/canopy/pkg/domain"
	"github.com/aretw0/canopy/pkg/dsl"
)

const menusYAML = `
contributions:
  - name: options
    parent: menu
    states:
      - id: menu/options
        children:
          - id: menu/options/audio
  - name: menus
    priority: "10"
    states:
      - id: menu
        children: [{id: menu/main}]
`

const gameJSON = `{
  "contributions": [
    {"parent": "root", "priority": 1, "states": [{"id": "game"}]},
    {"parent": "root", "skip_in_verification": true, "states": [{"id": "debug"}]}
  ]
}`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestParse(t *testing.T) {
	doc, err := file.Parse([]byte(menusYAML), file.FormatYAML)
	require.NoError(t, err)

	require.Len(t, doc.Contributions, 2)
	assert.Equal(t, "menu", doc.Contributions[0].Parent)
	assert.Equal(t, 10, doc.Contributions[1].Priority)
	assert.Equal(t, "", doc.Contributions[1].Parent)
	assert.Equal(t, "menu/options/audio", doc.Contributions[0].States[0].Children[0].ID)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		data   string
		format string
	}{
		{"Syntax", "contributions: [", file.FormatYAML},
		{"Unknown key", "contributions:\n  - states: [{id: a}]\n    colour: red\n", file.FormatYAML},
		{"Missing id", "contributions:\n  - states: [{children: []}]\n", file.FormatYAML},
		{"Reserved id", `{"contributions":[{"states":[{"id":"root"}]}]}`, file.FormatJSON},
		{"No states", "contributions:\n  - name: empty\n", file.FormatYAML},
		{"Bad priority", "contributions:\n  - priority: high\n    states: [{id: a}]\n", file.FormatYAML},
		{"Unknown format", "{}", "toml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := file.Parse([]byte(tt.data), tt.format)
			assert.ErrorIs(t, err, file.ErrInvalidDocument)
		})
	}
}

func TestLoadFiles_AssemblesMachine(t *testing.T) {
	log := &testutils.HookLog{}
	loader := file.NewLoader(file.WithHookBinder(log.Hooks))

	descs, err := loader.LoadFiles(
		writeFile(t, "menus.yaml", menusYAML),
		writeFile(t, "game.json", gameJSON),
	)
	require.NoError(t, err)
	require.Len(t, descs, 4)
	assert.Equal(t, "options", descs[0].Name)
	assert.Equal(t, "game.json#0", descs[2].Name)
	assert.True(t, descs[3].SkipInVerification)

	rec := &testutils.Recorder{}
	m := canopy.New(canopy.WithReporter(rec), canopy.WithVerificationMode(true))
	m.Register(descs...)
	require.NoError(t, m.Assemble())
	assert.Empty(t, rec.Reports())

	// game (priority 1) runs before menu (priority 10); options waits for menu.
	assert.Equal(t, []string{"game", "menu"}, m.StateInfo(domain.RootStateID).Children)
	assert.Equal(t, []string{"menu/main", "menu/options"}, m.StateInfo("menu").Children)
	assert.False(t, m.StateExists("debug"))

	require.NoError(t, m.ChangeState("menu/options/audio"))
	assert.Equal(t, []string{
		"enter menu (root->menu)",
		"enter menu/options (menu->menu/options)",
		"enter menu/options/audio (menu/options->menu/options/audio)",
	}, log.Entries())
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := file.NewLoader().LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestExportRoundTrip(t *testing.T) {
	m := canopy.New(canopy.WithReporter(&testutils.Recorder{}))
	m.Register(testutils.SampleTree(nil)...)
	require.NoError(t, m.Assemble())

	doc := file.Export(m)
	for _, format := range []string{file.FormatYAML, file.FormatJSON} {
		t.Run(format, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, file.Encode(&buf, doc, format))

			parsed, err := file.Parse(buf.Bytes(), format)
			require.NoError(t, err)

			again := canopy.New(canopy.WithReporter(&testutils.Recorder{}))
			again.Register(file.NewLoader().Descriptors(parsed, "export")...)
			require.NoError(t, again.Assemble())
			assert.Equal(t, m.AllStates(), again.AllStates())
		})
	}
}

func TestExport_DuplicateAncestorID(t *testing.T) {
	rec := &testutils.Recorder{}
	m := canopy.New(canopy.WithReporter(rec))
	m.Contribute(domain.RootStateID, func(root *dsl.Node) error {
		return root.Attach(canopy.State("A").Add(canopy.State("B").Add(canopy.State("A"))))
	})
	require.Error(t, m.Assemble())
	require.NotEmpty(t, rec.Errors())
	assert.ErrorIs(t, rec.Errors()[0], domain.ErrDuplicateStateID)
	require.Equal(t, []string{"A"}, m.StateInfo("B").Children, "the dropped id stays in the child list")

	doc := file.Export(m)
	require.Len(t, doc.Contributions, 1)
	assert.Equal(t, []file.StateSpec{{
		ID:       "A",
		Children: []file.StateSpec{{ID: "B"}},
	}}, doc.Contributions[0].States)

	var buf bytes.Buffer
	require.NoError(t, file.Encode(&buf, doc, file.FormatYAML))
}

func TestLoader_LayeredHookBinders(t *testing.T) {
	var calls []string
	specific := func(id string) domain.Hooks {
		if id != "game" {
			return domain.Hooks{}
		}
		return domain.Hooks{OnEnter: func(from, to string) { calls = append(calls, "game enter") }}
	}
	fallback := func(id string) domain.Hooks {
		return domain.Hooks{
			OnEnter: func(from, to string) { calls = append(calls, "default enter "+to) },
			OnExit:  func(from, to string) { calls = append(calls, "default exit "+from) },
		}
	}

	loader := file.NewLoader(file.WithHookBinder(specific), file.WithHookBinder(fallback), file.WithHookBinder(nil))
	doc, err := file.Parse([]byte(gameJSON), file.FormatJSON)
	require.NoError(t, err)

	m := canopy.New(canopy.WithReporter(&testutils.Recorder{}))
	m.Register(loader.Descriptors(doc, "game.json")...)
	require.NoError(t, m.Assemble())

	require.NoError(t, m.ChangeState("game"))
	require.NoError(t, m.ChangeState("debug"))
	assert.Equal(t, []string{"game enter", "default exit game", "default enter debug"}, calls)
}
