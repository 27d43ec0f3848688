package config

import (
	"context"
	"fmt"
	"os"

	lua "github.com/yuin/gopher-lua"

	"github.com/codexm-app/depfetch/internal/platform"
)

// Parser parses Lua manifests with host facts injected.
type Parser struct {
	detector platform.Detector
}

// NewParser creates a manifest parser. detector may be nil, in which case
// no host table is exposed to the manifest.
func NewParser(detector platform.Detector) *Parser {
	return &Parser{detector: detector}
}

// ParseError is a manifest parsing failure with a friendly message.
type ParseError struct {
	Message string // user-facing summary
	Detail  string // raw Lua error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s", e.Message, e.Detail)
}

// ParseFile parses the manifest at path. A missing file is not an error:
// the defaults are returned so a manifest stays optional.
func (p *Parser) ParseFile(ctx context.Context, path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return p.ParseString(ctx, string(data))
}

// ParseString parses a manifest from Lua source. Unset globals keep their
// defaults; set globals replace them wholesale.
func (p *Parser) ParseString(ctx context.Context, luaCode string) (*Manifest, error) {
	L := newSandboxedVM()
	defer L.Close()

	if p.detector != nil {
		info, err := p.detector.Detect(ctx)
		if err != nil {
			return nil, fmt.Errorf("host detection failed: %w", err)
		}
		platform.InjectHostTable(L, info)
	}

	if err := L.DoString(luaCode); err != nil {
		return nil, &ParseError{
			Message: "Lua syntax error in manifest",
			Detail:  err.Error(),
		}
	}

	return extractManifest(L)
}

// extractManifest reads the manifest globals out of the Lua state.
func extractManifest(L *lua.LState) (*Manifest, error) {
	m := Default()

	if err := readSource(L, "codex", &m.Codex); err != nil {
		return nil, err
	}
	if err := readSource(L, "ripgrep", &m.Ripgrep); err != nil {
		return nil, err
	}

	switch v := L.GetGlobal("abis").(type) {
	case *lua.LNilType:
	case *lua.LTable:
		var abis []string
		var bad error
		v.ForEach(func(_, value lua.LValue) {
			s, ok := value.(lua.LString)
			if !ok {
				bad = &ParseError{Message: "invalid manifest", Detail: "abis entries must be strings"}
				return
			}
			abis = append(abis, string(s))
		})
		if bad != nil {
			return nil, bad
		}
		m.ABIs = abis
	default:
		return nil, &ParseError{Message: "invalid manifest", Detail: "abis must be a table of strings"}
	}

	var err error
	if m.OutputDir, err = readString(L, "output_dir", m.OutputDir); err != nil {
		return nil, err
	}
	if m.KeyringDir, err = readString(L, "keyring_dir", m.KeyringDir); err != nil {
		return nil, err
	}

	if err := m.Validate(); err != nil {
		return nil, &ParseError{Message: "invalid manifest", Detail: err.Error()}
	}
	return m, nil
}

// readSource overlays a "name = {repo=..., tag=...}" global onto dst,
// keeping defaults for fields the table omits.
func readSource(L *lua.LState, name string, dst *SourceSpec) error {
	value := L.GetGlobal(name)
	if value == lua.LNil {
		return nil
	}
	table, ok := value.(*lua.LTable)
	if !ok {
		return &ParseError{
			Message: "invalid manifest",
			Detail:  fmt.Sprintf("%s must be a table with repo and tag fields", name),
		}
	}
	if repo, ok := L.GetField(table, "repo").(lua.LString); ok {
		dst.Repo = string(repo)
	}
	if tag, ok := L.GetField(table, "tag").(lua.LString); ok {
		dst.Tag = string(tag)
	}
	return nil
}

// readString reads an optional string global, returning fallback when unset.
func readString(L *lua.LState, name, fallback string) (string, error) {
	switch v := L.GetGlobal(name).(type) {
	case *lua.LNilType:
		return fallback, nil
	case lua.LString:
		return string(v), nil
	default:
		return "", &ParseError{
			Message: "invalid manifest",
			Detail:  fmt.Sprintf("%s must be a string", name),
		}
	}
}
