package builder

import v1 "github.com/google/go-containerregistry/pkg/v1"

// ImageConfig is the subset of an OCI image config this implementation
// acts on: Entrypoint, Cmd, Env, and WorkingDir feed the post-pivot exec
// stage when the caller did not supply an explicit command.
type ImageConfig struct {
	Entrypoint []string
	Cmd        []string
	Env        []string
	WorkingDir string
}

// ExtractImageConfig pulls the fields xenomorph cares about out of a
// full OCI config file, leaving everything else (labels, exposed ports,
// user, volumes) unused.
func ExtractImageConfig(cfg *v1.ConfigFile) *ImageConfig {
	if cfg == nil {
		return nil
	}
	return &ImageConfig{
		Entrypoint: cfg.Config.Entrypoint,
		Cmd:        cfg.Config.Cmd,
		Env:        cfg.Config.Env,
		WorkingDir: cfg.Config.WorkingDir,
	}
}
