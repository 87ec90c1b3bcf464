// Package config loads the feed client configuration from YAML.
//
// ${VAR} references are expanded from the environment before parsing, so
// secrets such as the catalog password can stay out of the file.
package config
