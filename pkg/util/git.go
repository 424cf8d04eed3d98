package util

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"stacksignal/pkg/repo"

	"gopkg.in/ini.v1"
)

var (
	sshRemoteRegex   = regexp.MustCompile(`^(?:ssh://)?git@github\.com[:/]([^/]+)/(.+?)(\.git)?/?$`)
	httpsRemoteRegex = regexp.MustCompile(`^(?:https|git)://(?:[^@/]+@)?github\.com/([^/]+)/(.+?)(\.git)?/?$`)
)

// IsGitRepository checks if the given path is a Git repository
func IsGitRepository(projectPath string) bool {
	_, err := gitDir(projectPath)
	return err == nil
}

// gitDir resolves the git directory of a checkout. Worktrees and submodules
// keep a ".git" file pointing at the real directory.
func gitDir(projectPath string) (string, error) {
	dotGit := filepath.Join(projectPath, ".git")
	info, err := os.Stat(dotGit)
	if err != nil {
		return "", fmt.Errorf("not a git repository: %s", projectPath)
	}
	if info.IsDir() {
		return dotGit, nil
	}

	data, err := os.ReadFile(dotGit)
	if err != nil {
		return "", fmt.Errorf("failed to read .git file: %w", err)
	}
	target, ok := strings.CutPrefix(strings.TrimSpace(string(data)), "gitdir:")
	if !ok {
		return "", fmt.Errorf("not a git repository: %s", projectPath)
	}
	target = strings.TrimSpace(target)
	if !filepath.IsAbs(target) {
		target = filepath.Join(projectPath, target)
	}
	return target, nil
}

// GetGitRemoteURL returns the remote origin URL recorded in the repository's
// config file
func GetGitRemoteURL(projectPath string) (string, error) {
	dir, err := gitDir(projectPath)
	if err != nil {
		return "", err
	}

	cfg, err := ini.Load(filepath.Join(dir, "config"))
	if err != nil {
		return "", fmt.Errorf("failed to read git config: %w", err)
	}

	section, err := cfg.GetSection(`remote "origin"`)
	if err != nil {
		return "", fmt.Errorf("no remote origin URL configured")
	}
	remoteURL := strings.TrimSpace(section.Key("url").String())
	if remoteURL == "" {
		return "", fmt.Errorf("no remote origin URL configured")
	}

	return remoteURL, nil
}

// ParseGitHubRepo extracts the organization and repository name from a GitHub URL
// Supports both SSH (git@github.com:org/repo.git) and HTTPS (https://github.com/org/repo.git) formats
func ParseGitHubRepo(remoteURL string) (org, repo string, err error) {
	remoteURL = strings.TrimSpace(remoteURL)

	if matches := sshRemoteRegex.FindStringSubmatch(remoteURL); len(matches) >= 3 {
		return matches[1], strings.TrimSuffix(matches[2], ".git"), nil
	}

	if matches := httpsRemoteRegex.FindStringSubmatch(remoteURL); len(matches) >= 3 {
		return matches[1], strings.TrimSuffix(matches[2], ".git"), nil
	}

	return "", "", fmt.Errorf("not a valid GitHub repository URL")
}

// GetGitHubRepo returns the validated GitHub reference of the project's origin remote
func GetGitHubRepo(projectPath string) (*repo.Reference, error) {
	remoteURL, err := GetGitRemoteURL(projectPath)
	if err != nil {
		return nil, err
	}

	org, name, err := ParseGitHubRepo(remoteURL)
	if err != nil {
		return nil, err
	}

	return repo.ParseRepositoryReference("https://github.com/" + org + "/" + name)
}
