package integrations

// File is the top-level structure of the integrations YAML.
type File struct {
	Keywords []Keyword `yaml:"keywords"`
	Groups   []Group   `yaml:"groups"`
}

// Keyword is a topic tag. It matches its own name or any alias, compared
// after normalization ("Next.js" == "nextjs"). Packages are dependency
// names that imply the tag but are too generic to match in free text.
type Keyword struct {
	Name     string   `yaml:"name"`
	Aliases  []string `yaml:"aliases,omitempty"`
	Packages []string `yaml:"packages,omitempty"`
}

// Group is a coarse tag (e.g. "hosting") detected from dependency names or
// the presence of config files, never from free text.
type Group struct {
	Name     string   `yaml:"name"`
	Packages []string `yaml:"packages,omitempty"`
	Files    []string `yaml:"files,omitempty"`
}
