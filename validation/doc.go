// Package validation checks configuration and request values.
//
// Struct tags are checked with go-playground/validator; field names in
// messages follow the yaml or json tag of the field:
//
//	type DeployConfig struct {
//	    Host string `yaml:"host" validate:"omitempty,url"`
//	}
//	err := validation.Validate(cfg)
//
// Ad-hoc checks collect errors on a Validator:
//
//	v := validation.New()
//	v.Required("host", req.Target.Host).OneOf("env", env, []string{"dev", "prod"})
//	if err := v.Validate(); err != nil { ... }
package validation
