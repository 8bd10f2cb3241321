package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/bookcat/internal/catalog"
	"github.com/roach88/bookcat/internal/fixture"
)

const testFixture = `
authors:
  - key: butler
    name: Octavia E. Butler
works:
  - key: kindred
    title: Kindred
    authors: [butler]
editions:
  - key: kindred-pb
    work: kindred
    title: Kindred
    authors: [butler]
    isbn_13: 978-0-8070-8369-7
    physical_format: paperback
    cover: covers/kindred-pb.jpg
    languages: [English]
  - key: kindred-reissue
    work: kindred
    title: Kindred
    authors: [butler]
    isbn_10: 0-8070-8369-0
  - key: stray
    title: Bloodchild and Other Stories
    authors: [butler]
`

// execute runs the root command with args and returns stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCommand()
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func tempDB(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "bookcat.db")
}

// writeFile writes content into the test's temp dir and returns the path.
func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// decodeData unmarshals the data member of a JSON CLIResponse into v.
func decodeData(t *testing.T, out string, v any) {
	t.Helper()
	var resp struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	require.Equal(t, "ok", resp.Status, out)
	require.NoError(t, json.Unmarshal(resp.Data, v))
}

// loadFixture loads testFixture into db and returns the assigned IDs.
func loadFixture(t *testing.T, db string) fixture.Result {
	t.Helper()
	path := writeFile(t, "catalog.yaml", testFixture)
	out, _, err := execute(t, "--db", db, "--format", "json", "load", path)
	require.NoError(t, err, out)

	var res fixture.Result
	decodeData(t, out, &res)
	require.Len(t, res.Editions, 3)
	return res
}

func id(n int64) string {
	return strconv.FormatInt(n, 10)
}

func TestISBNCommands_Golden(t *testing.T) {
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)

	tests := []struct {
		name string
		args []string
	}{
		{"isbn_normalize", []string{"isbn", "normalize", "978-0-8070-8369-7"}},
		{"isbn_convert_13_to_10", []string{"isbn", "convert", "978-0-8070-8369-7"}},
		{"isbn_convert_10_to_13", []string{"isbn", "convert", "0-8070-8369-0"}},
		{"isbn_check", []string{"isbn", "check", "0-8070-8369-0"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := execute(t, append([]string{"--format", "json"}, tt.args...)...)
			require.NoError(t, err)
			g.Assert(t, tt.name, []byte(out))
		})
	}
}

func TestISBNCommands_Text(t *testing.T) {
	out, _, err := execute(t, "isbn", "convert", "9780807083697")
	require.NoError(t, err)
	assert.Equal(t, "0807083690\n", out)

	out, _, err = execute(t, "isbn", "check", "0-8070-8369-0")
	require.NoError(t, err)
	assert.Contains(t, out, "0807083690 is a valid ISBN-10")
}

func TestISBNCommands_Invalid(t *testing.T) {
	out, _, err := execute(t, "isbn", "check", "9780807083698")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [E012]")

	// 979 ISBNs have no ISBN-10 form.
	out, _, err = execute(t, "--format", "json", "isbn", "convert", "9791032305690")
	require.Error(t, err)
	assert.Contains(t, out, `"code": "E012"`)
}

func TestLoadAndEditions(t *testing.T) {
	db := tempDB(t)
	res := loadFixture(t, db)

	out, _, err := execute(t, "--db", db, "--format", "json", "editions", id(res.Works["kindred"]))
	require.NoError(t, err)

	var editions []EditionInfo
	decodeData(t, out, &editions)
	require.Len(t, editions, 2)
	assert.Equal(t, res.Editions["kindred-pb"], editions[0].ID)
	assert.True(t, editions[0].Default)
	assert.Equal(t, "9780807083697", editions[0].ISBN13)
	assert.False(t, editions[1].Default)
	assert.Greater(t, editions[0].Rank, editions[1].Rank)

	out, _, err = execute(t, "--db", db, "editions", id(res.Works["kindred"]))
	require.NoError(t, err)
	assert.Contains(t, out, "Kindred (2 edition(s))")
	assert.Contains(t, out, "* "+id(res.Editions["kindred-pb"]))
}

func TestEditionsCollection(t *testing.T) {
	db := tempDB(t)
	res := loadFixture(t, db)
	work := id(res.Works["kindred"])

	out, _, err := execute(t, "--db", db, "editions", work, "--collection")
	require.NoError(t, err)
	var summary map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.Equal(t, "OrderedCollection", summary["type"])
	assert.EqualValues(t, 2, summary["totalItems"])

	out, _, err = execute(t, "--db", db, "editions", work, "--collection", "--page", "1", "--page-length", "1")
	require.NoError(t, err)
	var page map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &page))
	assert.Equal(t, "OrderedCollectionPage", page["type"])
	assert.Len(t, page["orderedItems"], 1)

	out, _, err = execute(t, "--db", db, "editions", work, "--collection", "--page", "9")
	require.Error(t, err)
	assert.Contains(t, out, "Error [E014]")
}

func TestEditions_NotFound(t *testing.T) {
	out, _, err := execute(t, "--db", tempDB(t), "editions", "42")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [E005]")

	out, _, err = execute(t, "--db", tempDB(t), "editions", "abc")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E002]")
}

func TestDedup(t *testing.T) {
	db := tempDB(t)
	res := loadFixture(t, db)

	// The reissue's ISBN-10 derives the paperback's ISBN-13.
	out, _, err := execute(t, "--db", db, "--format", "json", "dedup", id(res.Editions["kindred-pb"]))
	require.NoError(t, err)

	var dedup DedupResult
	decodeData(t, out, &dedup)
	require.NotEmpty(t, dedup.Duplicates)
	assert.Equal(t, res.Editions["kindred-reissue"], dedup.Duplicates[0].ID)
	assert.Equal(t, "Edition", dedup.Duplicates[0].Kind)

	out, _, err = execute(t, "--db", db, "dedup", id(res.Editions["stray"]))
	require.NoError(t, err)
	assert.Contains(t, out, "No duplicates")
}

func TestRepair(t *testing.T) {
	db := tempDB(t)
	res := loadFixture(t, db)
	stray := res.Editions["stray"]

	out, _, err := execute(t, "--db", db, "--format", "json", "repair", "--all")
	require.NoError(t, err)
	var results []catalog.RepairResult
	decodeData(t, out, &results)
	require.Len(t, results, 1)
	assert.Equal(t, stray, results[0].EditionID)
	assert.Equal(t, "created", results[0].Result)
	assert.NotZero(t, results[0].WorkID)

	out, _, err = execute(t, "--db", db, "repair", "--edition", id(stray))
	require.NoError(t, err)
	assert.Contains(t, out, "skipped")

	out, _, err = execute(t, "--db", db, "repair", "--all")
	require.NoError(t, err)
	assert.Equal(t, "No orphan editions\n", out)
}

func TestLinkAndDomainModeration(t *testing.T) {
	db := tempDB(t)
	res := loadFixture(t, db)
	cfg := writeFile(t, "bookcat.yaml", "auth:\n  jwt_secret: test-secret\n")
	book := id(res.Editions["kindred-pb"])

	out, _, err := execute(t, "--db", db, "--config", cfg, "--format", "json",
		"link", "add", book, "https://files.example.com/kindred.epub", "--filetype", "epub")
	require.NoError(t, err, out)
	var fl FileLinkInfo
	decodeData(t, out, &fl)
	assert.Equal(t, "pending", fl.DomainStatus)
	assert.Equal(t, "cli", fl.AddedBy)

	out, _, err = execute(t, "--db", db, "link", "list", book)
	require.NoError(t, err)
	assert.Contains(t, out, "https://files.example.com/kindred.epub")

	out, _, err = execute(t, "--db", db, "domain", "list", "--status", "pending")
	require.NoError(t, err)
	assert.Contains(t, out, "files.example.com")

	modToken, _, err := execute(t, "--config", cfg, "token", "issue", "--subject", "mod", "--perm", "moderate_post")
	require.NoError(t, err)
	userToken, _, err := execute(t, "--config", cfg, "token", "issue", "--subject", "reader")
	require.NoError(t, err)
	domain := id(fl.DomainID)

	out, _, err = execute(t, "--db", db, "--config", cfg, "domain", "set-status", domain, "approved",
		"--token", trimNewline(userToken))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [E010]")

	out, _, err = execute(t, "--db", db, "--config", cfg, "domain", "set-status", domain, "approved",
		"--token", trimNewline(modToken))
	require.NoError(t, err)
	assert.Contains(t, out, "files.example.com is now approved")

	out, _, err = execute(t, "--db", db, "--config", cfg, "domain", "set-status", domain, "approved",
		"--token", trimNewline(modToken))
	require.NoError(t, err)
	assert.Contains(t, out, "already approved")

	out, _, err = execute(t, "--db", db, "--config", cfg, "domain", "set-status", domain, "pending",
		"--token", trimNewline(modToken))
	require.Error(t, err)
	assert.Contains(t, out, "Error [E011]")

	out, _, err = execute(t, "--db", db, "--config", cfg, "domain", "set-status", domain, "approved",
		"--token", "not-a-token")
	require.Error(t, err)
	assert.Contains(t, out, "Error [E010]")
}

func TestTokenIssue_NoSecret(t *testing.T) {
	t.Setenv("BOOKCAT_JWT_SECRET", "")
	out, _, err := execute(t, "token", "issue", "--subject", "mod")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E002]")
}

func TestLoad_BadFixture(t *testing.T) {
	path := writeFile(t, "bad.yaml", "editions:\n  - title: Lost\n    work: nowhere\n")
	out, _, err := execute(t, "--db", tempDB(t), "load", path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E013]")
}

func trimNewline(s string) string {
	return string(bytes.TrimRight([]byte(s), "\n"))
}
