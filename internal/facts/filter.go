package facts

import "path/filepath"

// FilterTablesByFiles returns a new Tables object containing only rows whose file
// or path is present in the provided file set. Variables are kept when they
// are declared in one of the files.
func FilterTablesByFiles(tables Tables, files map[string]bool) Tables {
	if len(files) == 0 {
		return emptyTables()
	}
	out := emptyTables()

	for _, row := range tables.Files {
		if files[row.Path] {
			out.Files = append(out.Files, row)
		}
	}
	for _, row := range tables.Regions {
		if files[row.File] {
			out.Regions = append(out.Regions, row)
		}
	}
	for _, row := range tables.Counts {
		if files[row.File] {
			out.Counts = append(out.Counts, row)
		}
	}

	// Join keys carry only the declaring file's base name
	bases := make(map[string]bool, len(files))
	for f := range files {
		bases[filepath.Base(f)] = true
	}
	for _, row := range tables.Variables {
		if bases[row.DeclFile] {
			out.Variables = append(out.Variables, row)
		}
	}

	return out
}

// FilterDeltaByFiles returns a new Delta containing only rows for the specified files.
func FilterDeltaByFiles(delta Delta, files map[string]bool) Delta {
	if len(files) == 0 {
		return Delta{
			Added:   emptyTables(),
			Removed: emptyTables(),
		}
	}
	return Delta{
		Added:   FilterTablesByFiles(delta.Added, files),
		Removed: FilterTablesByFiles(delta.Removed, files),
	}
}
