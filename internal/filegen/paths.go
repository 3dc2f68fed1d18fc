package filegen

import (
	"fmt"
	"path"

	"wizard/internal/artifact"
)

// StructureRepoDir is where scaffold output lands; parent-relative scaffold
// paths resolve beside it.
const StructureRepoDir = "04-project-structure/repo"

var typeFolders = map[artifact.FileType]string{
	artifact.FileTypeConversationSummary: "01-discovery",
	artifact.FileTypeBusinessOverview:    "02-business-analysis",
	artifact.FileTypeLogicBreakdown:      "02-business-analysis",
	artifact.FileTypeMetaOutline:         "02-business-analysis",
	artifact.FileTypeMasterplan:          "03-masterplan",
	artifact.FileTypeProjectStructure:    "04-project-structure",
	artifact.FileTypeDocumentation:       "docs",
	artifact.FileTypeConfiguration:       "config",
	artifact.FileTypeCode:                "code",
	artifact.FileTypeData:                "data",
	artifact.FileTypeAssets:              "assets",
}

// StoragePath is the logical path of an extracted file. Unknown types go to a
// phase-numbered misc folder.
func StoragePath(t artifact.FileType, phase int, filename string) string {
	folder, ok := typeFolders[t]
	if !ok {
		folder = fmt.Sprintf("phase-%d/misc", phase)
	}
	return path.Join(folder, path.Base(filename))
}

// scaffoldPath places a scaffold-relative path under StructureRepoDir.
func scaffoldPath(rel string) string {
	return path.Join(StructureRepoDir, rel)
}
