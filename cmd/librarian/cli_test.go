package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiebiao/library/internal/infrastructure/config"
	"github.com/xiebiao/library/internal/infrastructure/payment/simulated"
	"github.com/xiebiao/library/internal/infrastructure/persistence/mysql"
)

type harness struct {
	t   *testing.T
	cli *cli
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db, err := mysql.NewInMemoryDB()
	require.NoError(t, err)
	return &harness{t: t, cli: &cli{
		cfg:     &config.Config{},
		db:      db,
		gateway: simulated.New(1, simulated.WithRandom(func() float64 { return 0 })),
	}}
}

// run 每次执行都新建命令树, 共享同一个库
func (h *harness) run(stdin string, args ...string) (string, error) {
	h.t.Helper()
	h.cli.asJSON = false
	cmd := newRootCmd(h.cli)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCLI_Circulation(t *testing.T) {
	h := newHarness(t)

	out, err := h.run("", "add-book", "--title", "Dune", "--author", "Frank Herbert", "--isbn", "9780441172719", "--copies", "2")
	require.NoError(t, err)
	assert.Contains(t, out, `Book "Dune" has been successfully added to the catalog.`)

	_, err = h.run("", "add-book", "--title", "Dune", "--author", "Frank Herbert", "--isbn", "97804411727")
	assert.EqualError(t, err, "ISBN must be exactly 13 digits.")

	out, err = h.run("", "books")
	require.NoError(t, err)
	assert.Contains(t, out, "Frank Herbert")
	assert.Contains(t, out, "2/2")

	out, err = h.run("", "search", "--type", "author", "herbert")
	require.NoError(t, err)
	assert.Contains(t, out, "9780441172719")

	out, err = h.run("", "borrow", "123456", "1")
	require.NoError(t, err)
	assert.Contains(t, out, `Successfully borrowed "Dune".`)

	_, err = h.run("", "borrow", "12345", "1")
	assert.EqualError(t, err, "Invalid patron ID. Must be exactly 6 digits.")

	_, err = h.run("", "borrow", "123456", "abc")
	assert.Error(t, err)

	out, err = h.run("", "fee", "123456", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Book is not overdue.")

	_, err = h.run("", "pay", "123456", "1")
	assert.EqualError(t, err, "No late fees to pay for this book.")

	out, err = h.run("", "report", "123456")
	require.NoError(t, err)
	assert.Contains(t, out, "Patron 123456: 1 borrowed, late fees $0.00")

	out, err = h.run("", "return", "123456", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Late fee owed: $0.00.")

	_, err = h.run("", "refund", "txn_unknown", "20")
	assert.EqualError(t, err, "Refund amount exceeds maximum late fee.")
}

func TestCLI_JSONOutput(t *testing.T) {
	h := newHarness(t)
	_, err := h.run("", "add-book", "--title", "Emma", "--author", "Jane Austen", "--isbn", "9780141439587")
	require.NoError(t, err)

	cmd := newRootCmd(h.cli)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--json", "books"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), `"total_pages": 1`)
}

func TestCLI_StaffRegister(t *testing.T) {
	h := newHarness(t)

	out, err := h.run("shelves2024\n", "staff", "register", "--email", "alice@library.org", "--name", "Alice")
	require.NoError(t, err)
	assert.Contains(t, out, "Librarian Alice <alice@library.org> registered")

	_, err = h.run("short\n", "staff", "register", "--email", "bob@library.org", "--name", "Bob")
	assert.EqualError(t, err, "Password must be 8-20 characters with letters and digits.")
}
