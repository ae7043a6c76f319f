// Package config loads the application configuration of vidsearch.
//
// Values come from defaults, then an optional YAML file, then the
// environment. Every variable is read with the VIDSEARCH_ prefix first and
// under its bare name second, so VIDSEARCH_WORKING_DIR and WORKING_DIR both
// set the working directory.
package config
