package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "moviegames", cmd.Use)
	assert.Contains(t, cmd.Long, "branching-narrative")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"repair", "check"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)
}

func TestRepairCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	repairCmd, _, err := cmd.Find([]string{"repair"})
	require.NoError(t, err)

	outFlag := repairCmd.Flags().Lookup("out")
	require.NotNil(t, outFlag)
	assert.Equal(t, "o", outFlag.Shorthand)

	castFlag := repairCmd.Flags().Lookup("cast")
	require.NotNil(t, castFlag)

	langFlag := repairCmd.Flags().Lookup("lang")
	require.NotNil(t, langFlag)
	assert.Equal(t, "zh", langFlag.DefValue)

	canonicalFlag := repairCmd.Flags().Lookup("canonical")
	require.NotNil(t, canonicalFlag)
	assert.Equal(t, "false", canonicalFlag.DefValue)
}

func TestFormatValidation(t *testing.T) {
	assert.True(t, isValidFormat("text"))
	assert.True(t, isValidFormat("json"))

	assert.False(t, isValidFormat("xml"))
	assert.False(t, isValidFormat(""))
	assert.False(t, isValidFormat("TEXT"))
}

func TestFormatEnvDefault(t *testing.T) {
	t.Setenv(FormatEnvVar, "json")
	assert.Equal(t, "json", defaultFormat())

	t.Setenv(FormatEnvVar, "bogus")
	assert.Equal(t, "text", defaultFormat())
}

func TestFormatValidationIntegration(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetArgs([]string{"--format", "invalid", "check", "story.json"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}
