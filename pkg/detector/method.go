package detector

import (
	"path"
	"strings"
)

// Detection methods, highest priority first
const (
	MethodPackageManifest  = "package-manifest"
	MethodDependencyFile   = "dependency-file"
	MethodContainerFile    = "container-file"
	MethodContainerCompose = "container-compose"
	MethodCIWorkflow       = "ci-workflow"
	MethodInfraAsCode      = "infra-as-code"
	MethodGenericConfig    = "generic-config"
)

type methodRule struct {
	method string
	match  func(p, base string) bool
}

var methodPriority = []methodRule{
	{MethodPackageManifest, func(_, base string) bool {
		return isStructuredManifest(base)
	}},
	{MethodDependencyFile, func(_, base string) bool {
		switch base {
		case "requirements.txt", "Pipfile", "pyproject.toml", "Gemfile", "go.mod",
			"Cargo.toml", "pom.xml", "build.gradle", "build.gradle.kts":
			return true
		}
		return false
	}},
	{MethodContainerFile, func(_, base string) bool {
		return strings.HasPrefix(base, "Dockerfile")
	}},
	{MethodContainerCompose, func(_, base string) bool {
		switch base {
		case "docker-compose.yml", "docker-compose.yaml", "compose.yml", "compose.yaml":
			return true
		}
		return false
	}},
	{MethodCIWorkflow, func(p, base string) bool {
		return strings.Contains(p, ".github/workflows/") ||
			strings.HasPrefix(p, ".circleci/") || strings.Contains(p, "/.circleci/") ||
			base == ".gitlab-ci.yml"
	}},
	{MethodInfraAsCode, func(p, base string) bool {
		ext := path.Ext(base)
		return ext == ".tf" || ext == ".tfvars" ||
			base == "serverless.yml" || base == "Pulumi.yaml" ||
			strings.HasPrefix(p, "k8s/") || strings.Contains(p, "/k8s/")
	}},
}

// DetectionMethod classifies a detection by the highest-priority kind of file among its paths
func DetectionMethod(paths []string) string {
	for _, rule := range methodPriority {
		for _, p := range paths {
			if rule.match(p, path.Base(p)) {
				return rule.method
			}
		}
	}
	return MethodGenericConfig
}
