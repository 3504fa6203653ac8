package core

import (
	"log"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"
)

var (
	slugInvalidChars = regexp.MustCompile(`[^a-z0-9]+`)
)

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// Slugify turns "Intro to Go: Part 1" into "intro-to-go-part-1".
func Slugify(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(CleanString(s)) {
		if r < unicode.MaxASCII {
			b.WriteRune(r)
		}
	}
	slug := slugInvalidChars.ReplaceAllString(b.String(), "-")
	return strings.Trim(slug, "-")
}

// ClampPercentage bounds p to [0, 100].
func ClampPercentage(p float64) float64 {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// Round2 rounds f to 2 decimal places.
func Round2(f float64) float64 {
	return math.Round(f*100) / 100
}

// ProjectRoot finds the directory holding go.mod, walking up from the working directory.
// go-test changes the working directory to the package being tested.
// see: https://stackoverflow.com/questions/23847003/golang-tests-and-working-directory
func ProjectRoot() string {
	if root := os.Getenv("DARASA_ROOT"); root != "" {
		return root
	}
	wd, err := os.Getwd()
	if err != nil {
		log.Fatal(err)
	}
	currDir := wd
	for {
		if fi, err := os.Stat(filepath.Join(currDir, "go.mod")); err == nil && !fi.IsDir() {
			return currDir
		}
		newDir := filepath.Dir(currDir)
		if newDir == string(os.PathSeparator) || newDir == currDir {
			return wd // binaries deployed without sources
		}
		currDir = newDir
	}
}

func StrPtr(s string) *string       { return &s }
func BoolPtr(b bool) *bool          { return &b }
func IntPtr(i int) *int             { return &i }
func Float64Ptr(f float64) *float64 { return &f }
