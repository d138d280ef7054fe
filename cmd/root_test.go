package cmd

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveAppWithoutInitialization(t *testing.T) {
	_, err := resolveApp(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "not initialized")
}

func TestRootCommandSurfacesFactoryFailure(t *testing.T) {
	original := newApp
	defer func() { newApp = original }()
	newApp = func(context.Context) (App, error) {
		return nil, errors.New("bad config")
	}

	root := newRootCmd()
	root.SetArgs([]string{"once"})
	err := root.ExecuteContext(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "bad config")
}

func TestRootCommandRegistersSubcommands(t *testing.T) {
	root := newRootCmd()
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	require.Contains(t, names, "run")
	require.Contains(t, names, "once")
}
