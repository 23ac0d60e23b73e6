// Package config loads and saves hpgen generation profiles.
//
// A profile is a small YAML file that overrides the marker names a patch
// toolchain emits and sets the generation policy (strict mode and the
// device slot capacity). Every field is optional; anything left out keeps
// the built-in default.
//
// # Profile Location
//
// Without an explicit path the profile is read from:
//   - Linux: $XDG_CONFIG_HOME/hpgen/profile.yaml or $HOME/.config/hpgen/profile.yaml
//   - macOS: $HOME/.config/hpgen/profile.yaml
//   - Windows: %LOCALAPPDATA%\hpgen\profile.yaml
//
// A missing default profile is not an error.
//
// # Example
//
//	version: 1
//	markers:
//	  external_call: hotpatch_external_function_call
//	generation:
//	  strict: true
//	  max_code_size: 512
//
// # Usage Example
//
//	profile, err := config.LoadProfile("")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	a := analyzer.New(patch, firmware, profile.Markers())
//	g := hotpatch.NewGenerator(profile.Options())
package config
