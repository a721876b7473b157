// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bureau-foundation/permit/lib/clock"
)

const (
	bobKey     = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	adaKey     = "59c6995e998f97a5a0044966f0945389dc9e86dae88c7a8412f4603b6b78690d"
	bobAddress = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
	adaAddress = "0x70997970C51812dc3A010C7d01b50e0d17dc79C8"
)

type harness struct {
	t          *testing.T
	directory  string
	configPath string
	clock      *clock.FakeClock
}

type result struct {
	code   int
	stdout string
	stderr string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	directory := t.TempDir()
	configPath := filepath.Join(directory, "permit.yaml")
	content := `
chain_id: 31337
paths:
  root: ` + directory + `
  state: ${PERMIT_ROOT}/permits
storage:
  identity_file: ${PERMIT_ROOT}/identity.txt
log:
  level: error
`
	if err := os.WriteFile(configPath, []byte(content), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	h := &harness{
		t:          t,
		directory:  directory,
		configPath: configPath,
		clock:      clock.Fake(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)),
	}
	h.mustRun("", "init")
	return h
}

// runRaw executes the CLI with exactly args.
func (h *harness) runRaw(stdin string, args ...string) result {
	h.t.Helper()
	var stdout, stderr bytes.Buffer
	env := environment{
		stdin:  strings.NewReader(stdin),
		stdout: &stdout,
		stderr: &stderr,
		getenv: func(string) string { return "" },
		clock:  h.clock,
	}
	code := run(context.Background(), args, env)
	return result{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

// run executes a subcommand against the harness config.
func (h *harness) run(stdin string, args ...string) result {
	h.t.Helper()
	return h.runRaw(stdin, append(args, "--config", h.configPath)...)
}

func (h *harness) mustRun(stdin string, args ...string) string {
	h.t.Helper()
	outcome := h.run(stdin, args...)
	if outcome.code != 0 {
		h.t.Fatalf("permit %s: exit %d\nstderr: %s", strings.Join(args, " "), outcome.code, outcome.stderr)
	}
	return outcome.stdout
}

func (h *harness) keyFile(name, key string) string {
	h.t.Helper()
	path := filepath.Join(h.directory, name+".key")
	if err := os.WriteFile(path, []byte(key+"\n"), 0o600); err != nil {
		h.t.Fatalf("writing key file: %v", err)
	}
	return path
}

func (h *harness) show(reference string) permitView {
	h.t.Helper()
	var view permitView
	if err := json.Unmarshal([]byte(h.mustRun("", "show", reference)), &view); err != nil {
		h.t.Fatalf("parsing show output: %v", err)
	}
	return view
}

func TestVersion(t *testing.T) {
	h := &harness{t: t, clock: clock.Fake(time.Unix(0, 0))}
	outcome := h.runRaw("", "--version")
	if outcome.code != 0 {
		t.Fatalf("exit %d: %s", outcome.code, outcome.stderr)
	}
	if !strings.HasPrefix(outcome.stdout, "permit ") {
		t.Errorf("stdout = %q, want permit version line", outcome.stdout)
	}
}

func TestExitCodes(t *testing.T) {
	h := &harness{t: t, clock: clock.Fake(time.Unix(0, 0))}

	if outcome := h.runRaw(""); outcome.code != 2 {
		t.Errorf("no arguments: exit %d, want 2", outcome.code)
	}
	if outcome := h.runRaw("", "frobnicate"); outcome.code != 2 {
		t.Errorf("unknown command: exit %d, want 2", outcome.code)
	}
	if outcome := h.runRaw("", "list", "--bogus"); outcome.code != 2 {
		t.Errorf("unknown flag: exit %d, want 2", outcome.code)
	}
	outcome := h.runRaw("", "list")
	if outcome.code != 2 || !strings.Contains(outcome.stderr, "PERMIT_CONFIG") {
		t.Errorf("missing config: exit %d, stderr %q", outcome.code, outcome.stderr)
	}
	if outcome := h.runRaw("", "list", "--config", "/nonexistent/permit.yaml"); outcome.code != 1 {
		t.Errorf("unreadable config: exit %d, want 1", outcome.code)
	}
	if outcome := h.runRaw("", "--help"); outcome.code != 0 || !strings.Contains(outcome.stderr, "Commands:") {
		t.Errorf("--help: exit %d, stderr %q", outcome.code, outcome.stderr)
	}
}

func TestInit(t *testing.T) {
	h := newHarness(t)

	info, err := os.Stat(filepath.Join(h.directory, "identity.txt"))
	if err != nil {
		t.Fatalf("identity file: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("identity mode = %v, want 0600", info.Mode().Perm())
	}

	if outcome := h.run("", "init"); outcome.code != 1 {
		t.Errorf("second init: exit %d, want 1", outcome.code)
	}
	recipient := strings.TrimSpace(h.mustRun("", "init", "--force"))
	if !strings.HasPrefix(recipient, "age1") {
		t.Errorf("init --force printed %q, want an age recipient", recipient)
	}
}

func TestCreateSignShow(t *testing.T) {
	h := newHarness(t)
	bob := h.keyFile("bob", bobKey)

	hash := strings.TrimSpace(h.mustRun("", "create", "--name", "Balances", "--issuer", bobAddress))
	view := h.show(hash)
	if view.Hash != hash {
		t.Errorf("show hash = %s, want %s", view.Hash, hash)
	}
	if view.Permit.Name != "Balances" || view.Holder.Hex() != bobAddress {
		t.Errorf("unexpected view %+v", view)
	}
	if !view.Active {
		t.Error("first permit for an account should be active")
	}
	if view.Validity.Valid || view.Validity.Error != "not-signed" {
		t.Errorf("validity before signing = %+v", view.Validity)
	}

	signed := h.mustRun("", "sign", hash[:10], "--key-file", bob)
	if !strings.Contains(signed, "as issuer") {
		t.Errorf("sign output = %q", signed)
	}
	view = h.show(hash)
	if !view.Validity.Valid {
		t.Errorf("validity after signing = %+v", view.Validity)
	}
	if len(view.Permit.IssuerSignature) != 65 {
		t.Errorf("issuer signature has %d bytes, want 65", len(view.Permit.IssuerSignature))
	}
	if view.Hash != hash {
		t.Error("signing changed the permit hash")
	}
}

func TestSignWithWrongKey(t *testing.T) {
	h := newHarness(t)
	ada := h.keyFile("ada", adaKey)

	hash := strings.TrimSpace(h.mustRun("", "create", "--issuer", bobAddress))
	outcome := h.run("", "sign", hash, "--key-file", ada)
	if outcome.code != 1 {
		t.Fatalf("signing as the wrong account: exit %d, want 1", outcome.code)
	}
	if h.show(hash).Validity.Valid {
		t.Error("failed signing should not leave the permit valid")
	}
}

func TestSignWithKeyOnStdin(t *testing.T) {
	h := newHarness(t)
	hash := strings.TrimSpace(h.mustRun("", "create", "--issuer", bobAddress))

	h.mustRun(bobKey+"\n", "sign", hash, "--key-file", "-")
	if !h.show(hash).Validity.Valid {
		t.Error("permit signed with a key from stdin should be valid")
	}
}

func TestSealDiagnose(t *testing.T) {
	h := newHarness(t)
	hash := strings.TrimSpace(h.mustRun("", "create", "--issuer", bobAddress))

	notation := h.mustRun("", "seal", hash, "--type", "bool", "--value", "false", "--diagnose")
	if !strings.Contains(notation, `"x25519-xsalsa20-poly1305"`) {
		t.Errorf("diagnostic notation %q does not show the envelope version", notation)
	}
}

func TestSignWithoutKeySource(t *testing.T) {
	h := newHarness(t)
	hash := strings.TrimSpace(h.mustRun("", "create", "--issuer", bobAddress))

	outcome := h.run("", "sign", hash)
	if outcome.code != 2 || !strings.Contains(outcome.stderr, "--key-file") {
		t.Errorf("exit %d, stderr %q; want usage error pointing at --key-file", outcome.code, outcome.stderr)
	}
}

func TestCreateWithSign(t *testing.T) {
	h := newHarness(t)
	bob := h.keyFile("bob", bobKey)

	output := h.mustRun("", "create", "--sign", "--key-file", bob, "--json")
	var view permitView
	if err := json.Unmarshal([]byte(output), &view); err != nil {
		t.Fatalf("parsing create --json: %v", err)
	}
	if view.Permit.Issuer.Hex() != bobAddress {
		t.Errorf("issuer = %s, want the signing key's account", view.Permit.Issuer.Hex())
	}
	if !view.Validity.Valid {
		t.Errorf("validity = %+v, want valid", view.Validity)
	}
}

func TestCreateValidation(t *testing.T) {
	h := newHarness(t)

	if outcome := h.run("", "create", "--type", "delegate", "--issuer", bobAddress); outcome.code != 2 {
		t.Errorf("unknown type: exit %d, want 2", outcome.code)
	}
	outcome := h.run("", "create", "--type", "sharing", "--issuer", bobAddress)
	if outcome.code != 1 || !strings.Contains(outcome.stderr, "recipient") {
		t.Errorf("sharing without recipient: exit %d, stderr %q", outcome.code, outcome.stderr)
	}
	if listed := h.mustRun("", "list", "--json"); strings.TrimSpace(listed) != "[]" {
		t.Errorf("failed creates should store nothing, list = %s", listed)
	}
}

func TestSharingFlow(t *testing.T) {
	h := newHarness(t)
	bob := h.keyFile("bob", bobKey)
	ada := h.keyFile("ada", adaKey)

	sharing := strings.TrimSpace(h.mustRun("",
		"create", "--type", "sharing", "--name", "For Ada", "--recipient", adaAddress,
		"--sign", "--key-file", bob))

	sharePath := filepath.Join(h.directory, "share.json")
	h.mustRun("", "export", sharing, "--share", "--output", sharePath)
	shareData, err := os.ReadFile(sharePath)
	if err != nil {
		t.Fatalf("reading share: %v", err)
	}
	if strings.Contains(string(shareData), "privateKey") || strings.Contains(string(shareData), "sealingPair") {
		t.Fatalf("share leaks sealing material: %s", shareData)
	}

	received := strings.TrimSpace(h.mustRun("", "import", sharePath))
	view := h.show(received)
	if view.Permit.Type != "recipient" || view.Holder.Hex() != adaAddress {
		t.Errorf("imported permit: type %s holder %s", view.Permit.Type, view.Holder.Hex())
	}
	if view.Permit.Name != "For Ada" {
		t.Errorf("imported name = %q", view.Permit.Name)
	}
	if view.Validity.Valid {
		t.Error("recipient permit should need the recipient's signature")
	}

	signed := h.mustRun("", "sign", received, "--key-file", ada)
	if !strings.Contains(signed, "as recipient") {
		t.Errorf("sign output = %q", signed)
	}
	if !h.show(received).Validity.Valid {
		t.Error("recipient permit should be valid once signed")
	}
}

func TestExportUnsignedShareFails(t *testing.T) {
	h := newHarness(t)
	sharing := strings.TrimSpace(h.mustRun("",
		"create", "--type", "sharing", "--issuer", bobAddress, "--recipient", adaAddress))

	if outcome := h.run("", "export", sharing, "--share"); outcome.code != 1 {
		t.Errorf("unsigned share: exit %d, want 1", outcome.code)
	}

	self := strings.TrimSpace(h.mustRun("", "create", "--issuer", adaAddress))
	if outcome := h.run("", "export", self, "--share"); outcome.code != 1 {
		t.Errorf("sharing a self permit: exit %d, want 1", outcome.code)
	}
}

func TestExportImportSnapshot(t *testing.T) {
	h := newHarness(t)
	hash := strings.TrimSpace(h.mustRun("", "create", "--name", "Moved", "--issuer", bobAddress))

	snapshot := h.mustRun("", "export", hash)
	if !strings.Contains(snapshot, "privateKey") {
		t.Fatalf("snapshot should carry the private key: %s", snapshot)
	}

	other := newHarness(t)
	imported := strings.TrimSpace(other.mustRun(snapshot, "import", "-"))
	if imported != hash {
		t.Errorf("imported hash = %s, want %s", imported, hash)
	}
	if other.show(hash).Permit.Name != "Moved" {
		t.Error("imported permit lost its name")
	}

	if outcome := other.run(snapshot, "import", "-"); outcome.code != 1 {
		t.Errorf("importing over a stored permit: exit %d, want 1", outcome.code)
	}
	if again := strings.TrimSpace(other.mustRun(snapshot, "import", "-", "--replace")); again != hash {
		t.Errorf("import --replace hash = %s, want %s", again, hash)
	}
}

func TestSealUnseal(t *testing.T) {
	h := newHarness(t)
	hash := strings.TrimSpace(h.mustRun("", "create", "--issuer", bobAddress))

	balance := strings.TrimSpace(h.mustRun("", "seal", hash, "--type", "uint64", "--value", "42"))
	flag := strings.TrimSpace(h.mustRun("", "seal", "--account", bobAddress, "--type", "bool", "--value", "true"))
	owner := strings.TrimSpace(h.mustRun("", "seal", hash, "--type", "address", "--value", adaAddress))

	document := `{
  // sealed by the contract
  "balance": ` + balance + `,
  "flags": [` + flag + `],
  "owner": ` + owner + `,
  "note": "plain",
}`
	output := h.mustRun(document, "unseal", hash)

	var revealed struct {
		Balance json.Number `json:"balance"`
		Flags   []bool      `json:"flags"`
		Owner   string      `json:"owner"`
		Note    string      `json:"note"`
	}
	if err := json.Unmarshal([]byte(output), &revealed); err != nil {
		t.Fatalf("parsing unseal output %q: %v", output, err)
	}
	if revealed.Balance.String() != "42" {
		t.Errorf("balance = %s, want 42", revealed.Balance)
	}
	if len(revealed.Flags) != 1 || !revealed.Flags[0] {
		t.Errorf("flags = %v, want [true]", revealed.Flags)
	}
	if revealed.Owner != adaAddress {
		t.Errorf("owner = %s, want %s", revealed.Owner, adaAddress)
	}
	if revealed.Note != "plain" {
		t.Errorf("note = %q, want plain", revealed.Note)
	}
}

func TestUnsealWithOtherPermitFails(t *testing.T) {
	h := newHarness(t)
	first := strings.TrimSpace(h.mustRun("", "create", "--issuer", bobAddress))
	second := strings.TrimSpace(h.mustRun("", "create", "--issuer", adaAddress))

	sealed := h.mustRun("", "seal", first, "--type", "uint32", "--value", "7")
	if outcome := h.run(sealed, "unseal", second); outcome.code != 1 {
		t.Errorf("unseal with the wrong permit: exit %d, want 1", outcome.code)
	}
}

func TestSealRejectsOutOfRange(t *testing.T) {
	h := newHarness(t)
	hash := strings.TrimSpace(h.mustRun("", "create", "--issuer", bobAddress))

	if outcome := h.run("", "seal", hash, "--type", "uint8", "--value", "256"); outcome.code != 2 {
		t.Errorf("uint8 overflow: exit %d, want 2", outcome.code)
	}
	if outcome := h.run("", "seal", hash, "--type", "uint16", "--value", "-1"); outcome.code != 2 {
		t.Errorf("negative value: exit %d, want 2", outcome.code)
	}
	if outcome := h.run("", "seal", hash, "--type", "uint512", "--value", "1"); outcome.code != 2 {
		t.Errorf("unknown type: exit %d, want 2", outcome.code)
	}
}

func TestActivateRemove(t *testing.T) {
	h := newHarness(t)
	first := strings.TrimSpace(h.mustRun("", "create", "--name", "first", "--issuer", bobAddress))
	second := strings.TrimSpace(h.mustRun("", "create", "--name", "second", "--issuer", bobAddress,
		"--expiration", "2000000000"))

	if h.show(second).Active {
		t.Fatal("second permit should not replace the active one")
	}

	outcome := h.run("", "remove", first)
	if outcome.code != 1 || !strings.Contains(outcome.stderr, "active") {
		t.Fatalf("removing the active permit: exit %d, stderr %q", outcome.code, outcome.stderr)
	}

	h.mustRun("", "activate", second)
	if !h.show(second).Active || h.show(first).Active {
		t.Fatal("activate did not move the active pointer")
	}

	h.mustRun("", "remove", first)
	if outcome := h.run("", "show", first); outcome.code != 1 {
		t.Errorf("removed permit still shown: exit %d", outcome.code)
	}

	h.mustRun("", "remove", second, "--force")
	if outcome := h.run("", "show", "--account", bobAddress); outcome.code != 1 {
		t.Errorf("account should have no active permit: exit %d", outcome.code)
	}
}

func TestCreateSameHashRefused(t *testing.T) {
	h := newHarness(t)
	first := strings.TrimSpace(h.mustRun("", "create", "--name", "first", "--issuer", bobAddress))
	sealed := h.mustRun("", "seal", first, "--type", "uint32", "--value", "7")

	outcome := h.run("", "create", "--name", "second", "--issuer", bobAddress)
	if outcome.code != 1 || !strings.Contains(outcome.stderr, "--replace") {
		t.Fatalf("creating a permit with a stored hash: exit %d, stderr %q", outcome.code, outcome.stderr)
	}
	if name := h.show(first).Permit.Name; name != "first" {
		t.Errorf("stored permit name = %q, want first", name)
	}
	if output := h.mustRun(sealed, "unseal", first); strings.TrimSpace(output) != "7" {
		t.Errorf("unseal after refused create = %q, want 7", output)
	}

	replaced := strings.TrimSpace(h.mustRun("", "create", "--name", "second", "--issuer", bobAddress, "--replace"))
	if replaced != first {
		t.Fatalf("replacement hash %s, want %s", replaced, first)
	}
	if name := h.show(first).Permit.Name; name != "second" {
		t.Errorf("replaced permit name = %q, want second", name)
	}
	if outcome := h.run(sealed, "unseal", first); outcome.code != 1 {
		t.Errorf("value sealed to the replaced key still unseals: exit %d", outcome.code)
	}
}

func TestList(t *testing.T) {
	h := newHarness(t)
	h.mustRun("", "create", "--name", "b-permit", "--issuer", bobAddress)
	h.mustRun("", "create", "--name", "a-permit", "--issuer", bobAddress, "--expiration", "2000000000")
	h.mustRun("", "create", "--name", "ada", "--issuer", adaAddress)

	var views []permitView
	if err := json.Unmarshal([]byte(h.mustRun("", "list", "--json", "--account", bobAddress)), &views); err != nil {
		t.Fatalf("parsing list: %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("list --account returned %d permits, want 2", len(views))
	}
	if views[0].Permit.Name != "a-permit" || views[1].Permit.Name != "b-permit" {
		t.Errorf("list order = %s, %s; want by name", views[0].Permit.Name, views[1].Permit.Name)
	}

	table := h.mustRun("", "list")
	if !strings.HasPrefix(table, "HASH") || strings.Count(table, "\n") != 4 {
		t.Errorf("unexpected table:\n%s", table)
	}
}

func TestPrune(t *testing.T) {
	h := newHarness(t)
	expiring := strings.TrimSpace(h.mustRun("", "create", "--issuer", bobAddress,
		"--expiration", "1772370000")) // 2026-03-01T13:00:00Z
	lasting := strings.TrimSpace(h.mustRun("", "create", "--issuer", adaAddress))

	if pruned := h.mustRun("", "prune"); pruned != "" {
		t.Fatalf("nothing should be expired yet, pruned %q", pruned)
	}

	h.clock.Advance(2 * time.Hour)
	pruned := h.mustRun("", "prune")
	if strings.TrimSpace(pruned) != "pruned "+expiring {
		t.Errorf("prune output = %q, want %s", pruned, expiring)
	}
	if outcome := h.run("", "show", expiring); outcome.code != 1 {
		t.Error("pruned permit is still stored")
	}
	h.show(lasting)
}

func TestChainsAreSeparate(t *testing.T) {
	h := newHarness(t)
	hash := strings.TrimSpace(h.mustRun("", "create", "--issuer", bobAddress))

	if outcome := h.run("", "show", hash, "--chain", "1"); outcome.code != 1 {
		t.Errorf("permit visible on another chain: exit %d", outcome.code)
	}
	h.show(hash)
}

func TestLookupReferences(t *testing.T) {
	h := newHarness(t)
	hash := strings.TrimSpace(h.mustRun("", "create", "--issuer", bobAddress))

	if outcome := h.run("", "show", "0x12"); outcome.code != 2 {
		t.Errorf("short reference: exit %d, want 2", outcome.code)
	}
	if view := h.show(strings.TrimPrefix(hash, "0x")[:8]); view.Hash != hash {
		t.Errorf("prefix lookup found %s", view.Hash)
	}
	if outcome := h.run("", "show"); outcome.code != 2 {
		t.Errorf("show without reference or account: exit %d, want 2", outcome.code)
	}
}
