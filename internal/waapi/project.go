package waapi

import (
	"context"
	"fmt"

	"reawwise/internal/wamp"
)

// Version is the authoring tool version reported by getInfo.
type Version struct {
	DisplayName string
	Year        int
	Major       int
	Minor       int
	Build       int
}

func (v Version) String() string {
	if v.DisplayName != "" {
		return v.DisplayName
	}
	return fmt.Sprintf("v%d.%d.%d.%d", v.Year, v.Major, v.Minor, v.Build)
}

// Capabilities are the features gated on the authoring tool version.
type Capabilities struct {
	WAQL            bool
	UndoGroups      bool
	PasteProperties bool
}

// CapabilitiesFor derives feature flags: WAQL and undo groups need 2021,
// pasteProperties needs 2022.
func CapabilitiesFor(v Version) Capabilities {
	return Capabilities{
		WAQL:            v.Year >= 2021,
		UndoGroups:      v.Year >= 2021,
		PasteProperties: v.Year >= 2022,
	}
}

// Info is the parsed getInfo result.
type Info struct {
	Version      Version
	Capabilities Capabilities
	ProcessID    int64
}

// GetInfo calls ak.wwise.core.getInfo.
func GetInfo(ctx context.Context, c Caller) (Info, error) {
	result, err := c.Call(ctx, ProcGetInfo, nil, nil)
	if err != nil {
		return Info{}, err
	}
	raw := wamp.ToDict(result["version"])
	num := func(key string) int {
		n, _ := wamp.ToInt64(raw[key])
		return int(n)
	}
	name, _ := raw["displayName"].(string)
	v := Version{DisplayName: name, Year: num("year"), Major: num("major"), Minor: num("minor"), Build: num("build")}
	pid, _ := wamp.ToInt64(result["processId"])
	return Info{Version: v, Capabilities: CapabilitiesFor(v), ProcessID: pid}, nil
}

// ProjectInfo is the parsed getProjectInfo result.
type ProjectInfo struct {
	ID           string
	Name         string
	Path         string
	OriginalsDir string
	Languages    []string
}

// GetProjectInfo calls ak.wwise.core.getProjectInfo. The project id falls
// back to the project file path when the tool does not report one.
func GetProjectInfo(ctx context.Context, c Caller) (ProjectInfo, error) {
	result, err := c.Call(ctx, ProcGetProjectInfo, nil, nil)
	if err != nil {
		return ProjectInfo{}, err
	}
	str := func(m map[string]any, key string) string {
		s, _ := m[key].(string)
		return s
	}
	info := ProjectInfo{
		ID:   str(result, "id"),
		Name: str(result, "name"),
		Path: str(result, "path"),
	}
	if dirs := wamp.ToDict(result["directories"]); dirs != nil {
		info.OriginalsDir = str(dirs, "originals")
	}
	if langs, ok := result["languages"].([]any); ok {
		for _, l := range langs {
			if m := wamp.ToDict(l); m != nil {
				info.Languages = append(info.Languages, str(m, "name"))
			}
		}
	}
	if info.ID == "" {
		info.ID = info.Path
	}
	return info, nil
}
