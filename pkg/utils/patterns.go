package utils

import (
	"path/filepath"
	"regexp"
	"strings"
)

// PatternMatcher matches slash-separated paths against glob patterns.
// "**" spans directories, "*" and "?" stay within one segment.
type PatternMatcher struct {
	regexps []*regexp.Regexp
}

// NewPatternMatcher compiles patterns. A pattern without a directory part
// also matches at any depth.
func NewPatternMatcher(patterns []string) (*PatternMatcher, error) {
	pm := &PatternMatcher{}
	for _, pattern := range patterns {
		for _, expanded := range expandPattern(pattern) {
			regex, err := globToRegex(expanded)
			if err != nil {
				return nil, err
			}
			pm.regexps = append(pm.regexps, regex)
		}
	}
	return pm, nil
}

// Match checks if a path matches any pattern
func (pm *PatternMatcher) Match(path string) bool {
	path = filepath.ToSlash(path)
	for _, regex := range pm.regexps {
		if regex.MatchString(path) {
			return true
		}
	}
	return false
}

func expandPattern(pattern string) []string {
	pattern = strings.TrimPrefix(filepath.ToSlash(pattern), "./")
	if strings.HasPrefix(pattern, "**") || strings.HasPrefix(pattern, "/") {
		return []string{pattern}
	}
	return []string{pattern, "**/" + pattern}
}

func globToRegex(pattern string) (*regexp.Regexp, error) {
	var regex strings.Builder
	regex.WriteString("^")

	for i := 0; i < len(pattern); i++ {
		c := pattern[i]
		switch {
		case c == '*' && strings.HasPrefix(pattern[i:], "**/"):
			regex.WriteString("(.*/)?")
			i += 2
		case c == '*' && strings.HasPrefix(pattern[i:], "**"):
			regex.WriteString(".*")
			i++
		case c == '*':
			regex.WriteString("[^/]*")
		case c == '?':
			regex.WriteString("[^/]")
		case c == '[':
			end := strings.IndexByte(pattern[i+1:], ']')
			if end < 0 {
				regex.WriteString(`\[`)
				continue
			}
			class := pattern[i+1 : i+1+end]
			if strings.HasPrefix(class, "!") {
				class = "^" + class[1:]
			}
			regex.WriteString("[" + class + "]")
			i += end + 1
		default:
			regex.WriteString(regexp.QuoteMeta(string(c)))
		}
	}

	regex.WriteString("$")
	return regexp.Compile(regex.String())
}

// ExclusionMatcher tells the watcher which changed paths to ignore
type ExclusionMatcher struct {
	matcher *PatternMatcher
}

// NewExclusionMatcher creates an exclusion matcher. A bare name such as
// "node_modules" excludes that directory and everything below it.
func NewExclusionMatcher(patterns []string) (*ExclusionMatcher, error) {
	all := make([]string, 0, len(patterns)*2)
	for _, pattern := range patterns {
		all = append(all, pattern)
		if !strings.ContainsAny(pattern, "*?[/") {
			all = append(all, pattern+"/**")
		}
	}

	matcher, err := NewPatternMatcher(all)
	if err != nil {
		return nil, err
	}
	return &ExclusionMatcher{matcher: matcher}, nil
}

// IsExcluded checks if a path should be excluded
func (em *ExclusionMatcher) IsExcluded(path string) bool {
	return em.matcher.Match(path)
}

// FilterPaths removes excluded paths from a list
func (em *ExclusionMatcher) FilterPaths(paths []string) []string {
	var filtered []string
	for _, path := range paths {
		if !em.IsExcluded(path) {
			filtered = append(filtered, path)
		}
	}
	return filtered
}

// GetDefaultExclusions returns the files a build writes next to its sources,
// plus editor and VCS noise. Watching them would retrigger the build.
func GetDefaultExclusions() []string {
	return []string{
		"*.dev.js",
		"*.dev.css",
		"*.dev.less",
		"*.soy.js",
		".*.cache",
		".*.cache/**",
		".cherry",
		"*.tmp",
		".git",
		".svn",
		".hg",
		"node_modules",
		".idea",
		".vscode",
		"*.swp",
		"*.swo",
		"*~",
		".DS_Store",
	}
}

// OutputExclusions returns patterns for the artifacts written for a manifest.
// output should be absolute so only those exact files are matched.
func OutputExclusions(output string) []string {
	output = filepath.ToSlash(output)
	return []string{output + ".js", output + ".css"}
}
