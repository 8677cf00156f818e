// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

type Id int

const (
	StoreNotFoundId Id = iota + 1
	PackageNotArchiveId
	PackageMalformedId
	ManifestInvalidId
	VersionMismatchId
	HostVersionUnknownId
	ScriptFailedId
	HostCodeDisabledId
	TooManyAttachmentsId
	ConfigLoadFailedId
	CatalogUnavailableId
	UploadRejectedId
	WrongPasswordId
	PermissionDeniedId
)

type MarkdownMsg string

type HttpLink string

type Issue struct {
	id       Id          // ID used to lookup the issue
	mdMsg    MarkdownMsg // Markdown text that will be rendered
	docLinks []HttpLink
	extLinks []HttpLink // external links that might be useful for the user
}

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

func (i *Issue) Render(stylePath string) (string, error) {
	var md strings.Builder
	md.WriteString(string(i.mdMsg))
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		md.WriteString("\n\n## See also\n")
		for _, link := range i.docLinks {
			md.WriteString("- <" + string(link) + ">\n")
		}
		for _, link := range i.extLinks {
			md.WriteString("- <" + string(link) + ">\n")
		}
	}
	return render(md.String(), stylePath)
}

var (
	render = glamour.Render

	storeNotFoundIssue = &Issue{
		id: StoreNotFoundId,
		mdMsg: `
# No mod store found!

The mod store directory does not exist yet, so there is nothing to list.

## Things you can try:
- Build your first package, which creates the store:
~~~
$ barkmods mod build --name "My Mod" --file mod.lua
~~~

- Or point at an existing store, either with an environment variable:
~~~
$ BARKMODS_STORE_DIR=/path/to/mods barkmods mod list
~~~
  or with ` + "`store_dir`" + ` in config.cue:
~~~
store_dir: "/path/to/mods"
~~~`,
	}

	packageNotArchiveIssue = &Issue{
		id: PackageNotArchiveId,
		mdMsg: `
# That file is not a mod package!

Mod packages are zip archives with a ` + "`info.json`" + ` manifest at the root.
The file could not be read as a zip archive at all.

## Things you can try:
- Check that the download finished and the file is not truncated
- Rebuild the package from its source files:
~~~
$ barkmods mod build --name "My Mod" --file mod.lua --file texture.png
~~~`,
	}

	packageMalformedIssue = &Issue{
		id: PackageMalformedId,
		mdMsg: `
# Incomplete or corrupted mod package!

The archive opened, but its ` + "`info.json`" + ` manifest is missing or unreadable.
The package is still listed so you can remove it.

## Things you can try:
- Inspect what the package contains:
~~~
$ barkmods mod inspect "My Mod"
~~~

- Remove it from the store:
~~~
$ barkmods mod remove "My Mod"
~~~`,
	}

	manifestInvalidIssue = &Issue{
		id: ManifestInvalidId,
		mdMsg: `
# Invalid manifest!

The ` + "`info.json`" + ` manifest does not satisfy the manifest schema.

## Minimal valid manifest:
~~~json
{
    "mod name": "My Mod",
    "mod author": "Alice",
    "BarkEngine version": "1.0"
}
~~~

## Things you can try:
- Validate a manifest or package directly:
~~~
$ barkmods mod validate path/to/info.json
~~~`,
	}

	versionMismatchIssue = &Issue{
		id: VersionMismatchId,
		mdMsg: `
# Version mismatch!

The mod targets a different BarkEngine version than the one installed.
It is still loaded, but it may not behave as its author intended.

## Things you can try:
- Ask the author for a build targeting your engine version
- Rebuild the package for your version:
~~~
$ barkmods mod build --name "My Mod" --engine-version 1.0 --file mod.lua
~~~`,
	}

	hostVersionUnknownIssue = &Issue{
		id: HostVersionUnknownId,
		mdMsg: `
# Engine version not determined!

The host configuration file could not be read, so compatibility cannot be checked.
Every mod is reported with an unknown compatibility verdict.

## Things you can try:
- Make sure ` + "`details.json`" + ` exists next to the engine and contains:
~~~json
{ "barkengine_version": "1.0" }
~~~

- Or point at it explicitly in your config:
~~~cue
host_config: "/path/to/details.json"
~~~`,
	}

	scriptFailedIssue = &Issue{
		id: ScriptFailedId,
		mdMsg: `
# A mod script failed!

The script was stopped. Other mods were still loaded.

## Things you can try:
- Run with verbose output to see the full error:
~~~
$ barkmods mod run --scripts --verbose
~~~

- Report the error to the mod's author`,
	}

	hostCodeDisabledIssue = &Issue{
		id: HostCodeDisabledId,
		mdMsg: `
# Host code execution is disabled!

A mod asked to run a command on your machine. That capability is off unless you
explicitly trust the mods you run.

## Things you can try:
- Only if you trust every mod in your store:
~~~
$ barkmods mod run --scripts --trust-host-code
~~~`,
	}

	tooManyAttachmentsIssue = &Issue{
		id: TooManyAttachmentsId,
		mdMsg: `
# Too many attachments!

A package holds at most 10 attachments besides its manifest.

## Things you can try:
- Combine assets into fewer files
- Split the content across several mods`,
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

The configuration file could not be parsed.

## Things you can try:
- Check the CUE syntax of your config file
- Print the effective configuration:
~~~
$ barkmods config show
~~~

- Write a fresh default config:
~~~
$ barkmods config init --force
~~~`,
	}

	catalogUnavailableIssue = &Issue{
		id: CatalogUnavailableId,
		mdMsg: `
# Catalog database unavailable!

The catalog database could not be opened.

## Things you can try:
- Check that the directory holding the database exists and is writable
- Point at another database file:
~~~cue
catalog: db_path: "/path/to/mods.db"
~~~`,
	}

	uploadRejectedIssue = &Issue{
		id: UploadRejectedId,
		mdMsg: `
# Upload rejected!

Every upload needs a mod name, an author, a version, a description and a package file.

## Things you can try:
- Fill in every required field and upload again
- Check that the package is below the configured size limit`,
	}

	wrongPasswordIssue = &Issue{
		id: WrongPasswordId,
		mdMsg: `
# Wrong password!

Deleting a catalog entry requires the catalog password.

## Things you can try:
- Check the password file configured as ` + "`catalog.password_file`" + ``,
	}

	permissionDeniedIssue = &Issue{
		id: PermissionDeniedId,
		mdMsg: `
# Permission denied!

You don't have permission to perform this operation.

## Things you can try:
- Check file and directory permissions of the mod store
- Run barkmods from a directory you own`,
	}

	issues = map[Id]*Issue{
		storeNotFoundIssue.Id():      storeNotFoundIssue,
		packageNotArchiveIssue.Id():  packageNotArchiveIssue,
		packageMalformedIssue.Id():   packageMalformedIssue,
		manifestInvalidIssue.Id():    manifestInvalidIssue,
		versionMismatchIssue.Id():    versionMismatchIssue,
		hostVersionUnknownIssue.Id(): hostVersionUnknownIssue,
		scriptFailedIssue.Id():       scriptFailedIssue,
		hostCodeDisabledIssue.Id():   hostCodeDisabledIssue,
		tooManyAttachmentsIssue.Id(): tooManyAttachmentsIssue,
		configLoadFailedIssue.Id():   configLoadFailedIssue,
		catalogUnavailableIssue.Id(): catalogUnavailableIssue,
		uploadRejectedIssue.Id():     uploadRejectedIssue,
		wrongPasswordIssue.Id():      wrongPasswordIssue,
		permissionDeniedIssue.Id():   permissionDeniedIssue,
	}
)

// Values returns every registered issue, sorted by id.
func Values() []*Issue {
	out := maps.Values(issues)
	slices.SortFunc(out, func(a, b *Issue) int { return int(a.id) - int(b.id) })
	return out
}

func Get(id Id) *Issue {
	return issues[id]
}
