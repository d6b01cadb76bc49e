// Command sqllint checks that every SQL string constant and migration file
// starts with a "--sql <uuid>" audit marker and that no marker is reused.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func main() {
	flag.Parse()
	targets := flag.Args()
	if len(targets) == 0 {
		targets = []string{"."}
	}

	l := newLinter()
	for _, target := range targets {
		info, err := os.Stat(target)
		if err != nil {
			exitWithError(err)
		}
		if !info.IsDir() {
			if err := l.lintPath(target); err != nil {
				exitWithError(err)
			}
			continue
		}
		walkErr := filepath.WalkDir(target, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				name := d.Name()
				if path != target && (strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") || name == "vendor" || name == "node_modules") {
					return filepath.SkipDir
				}
				return nil
			}
			return l.lintPath(path)
		})
		if walkErr != nil {
			exitWithError(walkErr)
		}
	}

	if len(l.violations) > 0 {
		fmt.Fprintln(os.Stderr, "sqllint: SQL audit marker violations")
		for _, v := range l.violations {
			fmt.Fprintf(os.Stderr, "  %s:%d %s (%s)\n", v.file, v.line, v.message, v.name)
		}
		os.Exit(1)
	}
}

func exitWithError(err error) {
	fmt.Fprintf(os.Stderr, "sqllint: %v\n", err)
	os.Exit(1)
}
