package job

import (
	"fmt"
	"path"
	"strings"

	"boulder/internal/pkg/buildenv"
	"boulder/internal/pkg/cache"
	"boulder/pkg/recipe"
)

// archiveSuffixes lists the upstream filename suffixes Prepare extracts
// with tar rather than copying verbatim into the build directory.
var archiveSuffixes = []string{
	".tar.gz", ".tar.xz", ".tar.bz2", ".tar.zst", ".tar",
	".tgz", ".txz", ".tbz2",
}

// prepareScript assembles Prepare's script: staging every upstream
// source the recipe declares into the job's work directory, the
// directory BuildRunner runs step commands in. Prepare
// has no recipe-authored key (spec.md §3 — its script is "assembled
// from recipe metadata" rather than macro-expanded user text), so its
// commands come from r.Upstreams instead of resolveScript.
func prepareScript(upstreams []recipe.Upstream, env buildenv.Env) recipe.Script {
	store := cache.New(env.CacheDir)

	var body strings.Builder
	for _, u := range upstreams {
		switch {
		case u.URI != nil:
			writeURIStage(&body, store, *u.URI)
		case u.Git != nil:
			writeGitStage(&body, *u.Git)
		}
	}

	commands := []recipe.Command(nil)
	if strings.TrimSpace(body.String()) != "" {
		commands = []recipe.Command{{Content: body.String()}}
	}

	return recipe.Script{
		Env:      "#!/bin/sh\nset -eu\n",
		Commands: commands,
	}
}

// writeURIStage emits a command staging a downloaded URI upstream into
// the working directory: extracted with tar if its name looks like an
// archive, copied as-is otherwise. The download is expected to already
// sit at the AssetStore's deterministic path for its hash (fetched
// ahead of planning, per spec.md §4.4).
func writeURIStage(body *strings.Builder, store *cache.Store, u recipe.URIUpstream) {
	downloadPath, err := store.DownloadPath(u.Hash)
	if err != nil {
		return
	}

	if isArchive(u.URI) {
		fmt.Fprintf(body, "tar -xf %s\n", shellQuote(downloadPath))
	} else {
		fmt.Fprintf(body, "cp %s .\n", shellQuote(downloadPath))
	}
}

// writeGitStage emits a clone-and-checkout command pair for a git
// upstream, cloning into a directory named after the repository.
func writeGitStage(body *strings.Builder, u recipe.GitUpstream) {
	dir := gitCheckoutDir(u.URL)
	fmt.Fprintf(body, "git clone %s %s\n", shellQuote(u.URL), shellQuote(dir))
	if u.Ref != "" {
		fmt.Fprintf(body, "git -C %s checkout %s\n", shellQuote(dir), shellQuote(u.Ref))
	}
}

func isArchive(uri string) bool {
	name := path.Base(uri)
	for _, suffix := range archiveSuffixes {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}

// gitCheckoutDir derives a checkout directory name from a repository
// URL: its last path segment with a trailing ".git" stripped.
func gitCheckoutDir(url string) string {
	name := path.Base(strings.TrimSuffix(url, "/"))
	return strings.TrimSuffix(name, ".git")
}

// shellQuote wraps s in single quotes for use in a generated /bin/sh
// script, escaping any single quotes it contains.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
