// Package profile defines the language profiles used by the sandbox.
package profile

import "strings"

const (
	PlaceholderSource    = "{src}"
	PlaceholderWorkspace = "{workspace}"
	PlaceholderBinary    = "{bin}"
	PlaceholderEntry     = "{entry}"

	defaultSourceBase = "solution"
)

// LanguageProfile defines how to compile and run a language.
// Command templates are split into an argument vector before placeholders are expanded.
type LanguageProfile struct {
	ID        string `yaml:"id" json:"id"`
	Name      string `yaml:"name" json:"name"`
	Extension string `yaml:"extension" json:"extension"`
	// SourceFile overrides the default "solution.<ext>" name, e.g. "{entry}.java".
	SourceFile   string   `yaml:"sourceFile" json:"-"`
	BinaryFile   string   `yaml:"binaryFile" json:"-"`
	CompileCmd   string   `yaml:"compileCmd" json:"-"`
	RunCmd       string   `yaml:"runCmd" json:"-"`
	DefaultEntry string   `yaml:"defaultEntry" json:"defaultEntry,omitempty"`
	Env          []string `yaml:"env" json:"-"`
}

// CompileEnabled reports whether the language needs a separate compile step.
func (p LanguageProfile) CompileEnabled() bool {
	return strings.TrimSpace(p.CompileCmd) != ""
}

// UsesEntryPoint reports whether the profile depends on a caller-chosen entry point.
func (p LanguageProfile) UsesEntryPoint() bool {
	return strings.Contains(p.RunCmd, PlaceholderEntry) ||
		strings.Contains(p.CompileCmd, PlaceholderEntry) ||
		strings.Contains(p.SourceFile, PlaceholderEntry)
}

// EntryPointOrDefault returns entry, falling back to the profile default.
func (p LanguageProfile) EntryPointOrDefault(entry string) string {
	entry = strings.TrimSpace(entry)
	if entry == "" {
		return p.DefaultEntry
	}
	return entry
}

// SourceFileName returns the file name the source is written to.
func (p LanguageProfile) SourceFileName(entry string) string {
	if p.SourceFile == "" {
		return defaultSourceBase + "." + p.Extension
	}
	return strings.ReplaceAll(p.SourceFile, PlaceholderEntry, p.EntryPointOrDefault(entry))
}

// BinaryFileName returns the compiled artifact name, "solution" by default.
func (p LanguageProfile) BinaryFileName() string {
	if p.BinaryFile == "" {
		return defaultSourceBase
	}
	return p.BinaryFile
}

// DefaultProfiles returns the built-in profiles for c, cpp, python, javascript and java.
func DefaultProfiles() []LanguageProfile {
	return []LanguageProfile{
		{
			ID:         "c",
			Name:       "C",
			Extension:  "c",
			CompileCmd: "gcc {src} -o {workspace}/{bin}",
			RunCmd:     "{workspace}/{bin}",
		},
		{
			ID:         "cpp",
			Name:       "C++",
			Extension:  "cpp",
			CompileCmd: "g++ {src} -o {workspace}/{bin}",
			RunCmd:     "{workspace}/{bin}",
		},
		{
			ID:        "python",
			Name:      "Python 3",
			Extension: "py",
			RunCmd:    "python3 {src}",
		},
		{
			ID:        "javascript",
			Name:      "JavaScript (Node.js)",
			Extension: "js",
			RunCmd:    "node {src}",
		},
		{
			ID:           "java",
			Name:         "Java",
			Extension:    "java",
			SourceFile:   "{entry}.java",
			CompileCmd:   "javac {src}",
			RunCmd:       "java -cp {workspace} {entry}",
			DefaultEntry: "Solution",
		},
	}
}
