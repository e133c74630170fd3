// Package config loads the settings shared by the genohdc CLI and server.
//
// Values are resolved with priority env > file > defaults: Default provides
// the baseline, Load overlays a YAML file and then GENOHDC_* environment
// variables, and Validate checks the result with validator struct tags.
//
//	cfg, err := config.Load("genohdc.yaml")
//	if err != nil {
//	    return err
//	}
//	rc := resource.NewController(cfg.Resources.Controller())
package config
