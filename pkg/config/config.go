// Package config handles project configuration loading and validation
package config

import (
	"bytes"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/exustash/batect/pkg/types"
)

// File is a parsed project configuration: the task catalog and the container
// declarations tasks draw from.
type File struct {
	ProjectName string                      `yaml:"project_name,omitempty"`
	Containers  map[string]*types.Container `yaml:"containers,omitempty"`
	Tasks       map[string]*types.Task      `yaml:"tasks,omitempty"`
}

// Manager handles configuration operations
type Manager struct{}

// NewManager creates a new configuration manager
func NewManager() *Manager {
	return &Manager{}
}

// LoadConfig loads and validates a project configuration file.
func (m *Manager) LoadConfig(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return m.parse(data)
}

func (m *Manager) parse(data []byte) (*File, error) {
	var file File

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&file); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Map keys are the authoritative names.
	for name, container := range file.Containers {
		if container == nil {
			file.Containers[name] = &types.Container{}
			container = file.Containers[name]
		}
		container.Name = name
	}
	for name, task := range file.Tasks {
		if task == nil {
			file.Tasks[name] = &types.Task{}
			task = file.Tasks[name]
		}
		task.Name = name
	}

	if err := m.ValidateConfig(&file); err != nil {
		return nil, err
	}

	return &file, nil
}

// ValidateConfig checks declarations the execution engine assumes are sound.
// Cross-task references (unknown prerequisites, dependency cycles) are the
// engine's responsibility and produce richer errors there.
func (m *Manager) ValidateConfig(file *File) error {
	for _, name := range sortedContainerNames(file) {
		container := file.Containers[name]

		if container.Image == "" && container.BuildDirectory == "" {
			return fmt.Errorf("container %q must declare either an image or a build_directory", name)
		}
		if container.Image != "" && container.BuildDirectory != "" {
			return fmt.Errorf("container %q declares both an image and a build_directory", name)
		}
		if container.HealthCheck != nil && container.HealthCheck.Command == "" {
			return fmt.Errorf("container %q declares a health_check without a command", name)
		}

		for _, mount := range container.Volumes {
			if mount.Local == "" || mount.Container == "" {
				return fmt.Errorf("container %q declares an incomplete volume mount", name)
			}
		}
		for _, port := range container.Ports {
			if port.Local <= 0 || port.Container <= 0 {
				return fmt.Errorf("container %q declares an invalid port mapping %s", name, port)
			}
		}
	}

	for _, name := range sortedTaskNames(file) {
		task := file.Tasks[name]

		if task.Run != nil {
			if task.Run.Container == "" {
				return fmt.Errorf("task %q declares a run configuration without a container", name)
			}
			if _, ok := file.Containers[task.Run.Container]; !ok {
				return fmt.Errorf("task %q refers to unknown container %q", name, task.Run.Container)
			}
		}
	}

	return nil
}

// TaskNames returns the declared task names in sorted order.
func (f *File) TaskNames() []string {
	names := make([]string, 0, len(f.Tasks))
	for name := range f.Tasks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func sortedContainerNames(file *File) []string {
	names := make([]string, 0, len(file.Containers))
	for name := range file.Containers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func sortedTaskNames(file *File) []string {
	return file.TaskNames()
}
