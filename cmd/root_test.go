package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/birdsound-go/internal/buildinfo"
	"github.com/tphakala/birdsound-go/internal/errors"
)

func TestRootCommandSubcommands(t *testing.T) {
	root := RootCommand(buildinfo.NewContext("1.2.3", "2026-10-01"))

	names := make([]string, 0, len(root.Commands()))
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"classify", "species", "serve", "version"} {
		assert.Contains(t, names, want)
	}

	for _, flag := range []string{"config", "debug", "model", "backend", "labels", "catalog", "illustrations"} {
		assert.NotNil(t, root.PersistentFlags().Lookup(flag), "missing flag %s", flag)
	}
}

func TestVersionCommand(t *testing.T) {
	root := RootCommand(buildinfo.NewContext("1.2.3", "2026-10-01"))

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})

	require.NoError(t, root.Execute())
	assert.Equal(t, "birdsound 1.2.3 (built 2026-10-01)\n", out.String())
}

func TestClassifyRequiresClip(t *testing.T) {
	root := RootCommand(buildinfo.NewContext("", ""))
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"classify"})

	require.Error(t, root.Execute())
}

func TestExecuteFlushesOnFailure(t *testing.T) {
	flushes := 0
	orig := flush
	flush = func() { flushes++ }
	t.Cleanup(func() { flush = orig })

	root := RootCommand(buildinfo.NewContext("", ""))
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"classify"})
	require.Error(t, Execute(root))
	assert.Equal(t, 1, flushes)

	root = RootCommand(buildinfo.NewContext("1.2.3", ""))
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"version"})
	require.NoError(t, Execute(root))
	assert.Equal(t, 2, flushes)
}

func TestFormatError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "classified failure",
			err:  errors.WithKind(errors.NewStd("no decoder for .ogg"), errors.KindUnsupportedFormat).Build(),
			want: "Error [UnsupportedFormat]: no decoder for .ogg",
		},
		{
			name: "plain failure",
			err:  errors.NewStd("flag needs an argument"),
			want: "Error: flag needs an argument",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, FormatError(tt.err))
		})
	}
}
