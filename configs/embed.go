// Package configs provides embedded configuration templates for symdex.
//
// Templates are embedded at build time using Go's //go:embed directive
// so they ship inside the binary regardless of how it was installed.
//
// The templates are used by:
//   - cmd/symdex/cmd/init.go → creates .symdex.yaml in the project root
//   - cmd/symdex/cmd/init.go (--user) → creates ~/.config/symdex/config.yaml
//
// Configuration hierarchy (see internal/config/config.go Load()):
//  1. Hardcoded defaults (internal/config/config.go NewConfig())
//  2. User config (~/.config/symdex/config.yaml)
//  3. Project config (.symdex.yaml)
//  4. Environment variables (SYMDEX_*)
//
// To modify templates, edit the .yaml files in this directory and
// rebuild.
package configs

import _ "embed"

// UserConfigTemplate is the template for user/machine-level
// configuration: index location and logging. Settings that apply to
// every project on a machine.
//
//go:embed user-config.example.yaml
var UserConfigTemplate string

// ProjectConfigTemplate is the template for project-level
// configuration: dump directory, search tuning, ingestion tuning.
// Settings that are version-controlled with the project.
//
//go:embed project-config.example.yaml
var ProjectConfigTemplate string
