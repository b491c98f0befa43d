package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tartampluch/go-addressbook/internal/config"
)

const contacts = "BEGIN:VCARD\r\n" +
	"VERSION:3.0\r\n" +
	"UID:u1\r\n" +
	"N:Smith;Alice;;;\r\n" +
	"FN:Alice Smith\r\n" +
	"NICKNAME:asmith\r\n" +
	"ORG:Acme;Android\r\n" +
	"TITLE:Developer\r\n" +
	"BDAY:1990-09-20\r\n" +
	"END:VCARD\r\n" +
	"BEGIN:VCARD\r\n" +
	"VERSION:3.0\r\n" +
	"UID:u2\r\n" +
	"N:Brown;Bob;;;\r\n" +
	"FN:Bob Brown\r\n" +
	"NICKNAME:bbrown\r\n" +
	"ORG:Acme;Design\r\n" +
	"BDAY:1985-01-10\r\n" +
	"END:VCARD\r\n"

// setupEnv points every setting at a temporary directory and a local vCard source.
func setupEnv(t *testing.T) {
	t.Helper()
	tmp := t.TempDir()

	vcf := filepath.Join(tmp, "contacts.vcf")
	require.NoError(t, os.WriteFile(vcf, []byte(contacts), config.FilePermUserRW))

	t.Setenv("HOME", tmp)
	t.Setenv("XDG_CACHE_HOME", filepath.Join(tmp, "cache"))
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmp, "config"))
	t.Setenv(config.EnvSourceMode, config.SourceModeLocal)
	t.Setenv(config.EnvLocalPath, vcf)
	t.Setenv(config.EnvCachePath, filepath.Join(tmp, "directory.db"))
	t.Setenv(config.EnvMinDisplayMs, "0")
	t.Setenv(config.EnvLanguage, "en")
	t.Setenv(config.EnvSortMode, "none")
	t.Setenv(config.EnvUsername, "")
	t.Setenv(config.EnvToken, "")
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	c := &cli{out: &out, in: strings.NewReader(stdin)}
	defer c.close()

	root := newRootCmd(c)
	root.SetArgs(args)
	root.SetErr(io.Discard)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

// -----------------------------------------------------------------------------
// Commands
// -----------------------------------------------------------------------------

func TestVersion(t *testing.T) {
	out, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, config.AppName)
	assert.Contains(t, out, config.Version)
}

func TestList_RefreshesFromSource(t *testing.T) {
	setupEnv(t)

	out, err := execute(t, "", "list", "--sort", "alphabetical")
	require.NoError(t, err)

	assert.Contains(t, out, "Company directory")
	assert.Contains(t, out, "Alice Smith")
	assert.Contains(t, out, "Bob Brown")
	assert.Less(t, strings.Index(out, "Alice Smith"), strings.Index(out, "Bob Brown"))
}

func TestList_Filters(t *testing.T) {
	setupEnv(t)

	out, err := execute(t, "", "list", "--department", "design")
	require.NoError(t, err)
	assert.Contains(t, out, "Bob Brown")
	assert.NotContains(t, out, "Alice Smith")

	out, err = execute(t, "", "list", "--query", "ASMITH")
	require.NoError(t, err)
	assert.Contains(t, out, "Alice Smith")
	assert.NotContains(t, out, "Bob Brown")
}

func TestList_InvalidFlags(t *testing.T) {
	setupEnv(t)

	_, err := execute(t, "", "list", "--sort", "random")
	require.Error(t, err)
	assert.Contains(t, err.Error(), config.ErrSortUnsupport)

	_, err = execute(t, "", "list", "--department", "marketing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), config.ErrDepartmentLookup)
}

func TestList_OfflineNeedsCache(t *testing.T) {
	setupEnv(t)

	out, err := execute(t, "", "list", "--offline")
	require.Error(t, err)
	assert.Contains(t, out, "Could not refresh the directory")

	_, err = execute(t, "", "list")
	require.NoError(t, err)

	out, err = execute(t, "", "list", "--offline", "--sort", "birthday")
	require.NoError(t, err)
	assert.Contains(t, out, "Alice Smith")
}

func TestList_SourceFailureKeepsCache(t *testing.T) {
	setupEnv(t)

	_, err := execute(t, "", "list")
	require.NoError(t, err)

	t.Setenv(config.EnvLocalPath, filepath.Join(t.TempDir(), "missing.vcf"))

	out, err := execute(t, "", "list")
	require.NoError(t, err, "stale data must still be listed")
	assert.Contains(t, out, "Showing cached data")
	assert.Contains(t, out, "Bob Brown")
}

func TestShowEditDelete(t *testing.T) {
	setupEnv(t)
	_, err := execute(t, "", "list")
	require.NoError(t, err)

	out, err := execute(t, "", "show", "u1")
	require.NoError(t, err)
	assert.Contains(t, out, "Alice Smith")
	assert.Contains(t, out, "Developer")
	assert.Contains(t, out, "Android")
	assert.Contains(t, out, "20 September 1990")

	out, err = execute(t, "", "show", "nobody")
	require.Error(t, err)
	assert.Contains(t, out, "Person not found")

	out, err = execute(t, "", "edit", "u1", "--phone", "+1 555 0100", "--department", "ios")
	require.NoError(t, err)
	assert.Contains(t, out, "+1 555 0100")
	assert.Contains(t, out, "iOS")

	out, err = execute(t, "", "show", "u1")
	require.NoError(t, err)
	assert.Contains(t, out, "+1 555 0100")

	_, err = execute(t, "", "edit", "u1", "--birthday", "20.09.1990")
	require.Error(t, err)
	assert.Contains(t, err.Error(), config.ErrPersonInvalid)

	_, err = execute(t, "", "delete", "u2")
	require.NoError(t, err)

	out, err = execute(t, "", "list", "--offline")
	require.NoError(t, err)
	assert.Contains(t, out, "Alice Smith")
	assert.NotContains(t, out, "Bob Brown")
}

func TestSearch(t *testing.T) {
	setupEnv(t)
	_, err := execute(t, "", "list")
	require.NoError(t, err)

	out, err := execute(t, "", "search", "bro")
	require.NoError(t, err)
	assert.Contains(t, out, "Bob Brown")
	assert.NotContains(t, out, "Alice Smith")

	out, err = execute(t, "", "search", "zzz")
	require.NoError(t, err)
	assert.Contains(t, out, "We didn't find anyone")
}

func TestDepartments(t *testing.T) {
	setupEnv(t)

	out, err := execute(t, "", "departments")
	require.NoError(t, err)
	assert.Contains(t, out, "back_office")
	assert.Contains(t, out, "Back Office")
}

func TestLogin_EmptyToken(t *testing.T) {
	setupEnv(t)

	out, err := execute(t, "\n", "login", "alice")
	require.Error(t, err)
	assert.Contains(t, err.Error(), config.ErrTokenEmpty)
	assert.Contains(t, out, config.MsgTokenPrompt)
}
