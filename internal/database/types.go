package database

import "time"

// Folder represents a registered photo directory.
type Folder struct {
	ID        int64     `json:"id"`
	Path      string    `json:"path"`
	AddedDate time.Time `json:"added_date"`
}

// Image represents one scanned file.
type Image struct {
	ID          int64     `json:"id"`
	FolderID    int64     `json:"folder_id"`
	FilePath    string    `json:"file_path"`
	FileName    string    `json:"file_name"`
	FileSize    int64     `json:"file_size"`
	OrigWidth   int       `json:"orig_width"`
	OrigHeight  int       `json:"orig_height"`
	CreatedTime time.Time `json:"created_time"`
	ScanStatus  string    `json:"scan_status"`
}

// Person represents a named face group. Exactly one person carries the
// unassigned sentinel name; all others are either cluster-created
// (unconfirmed) or curated by a human.
type Person struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	IsConfirmed bool      `json:"is_confirmed"`
	CreatedDate time.Time `json:"created_date"`
}

// Face is one detection inside one image. The bounding box is always in the
// image's original unscaled pixel space with x1 < x2 and y1 < y2.
type Face struct {
	ID          int64      `json:"id"`
	ImageID     int64      `json:"image_id"`
	PersonID    int64      `json:"person_id"`
	Embedding   []float32  `json:"-"`
	BBox        [4]float64 `json:"bbox"` // x1, y1, x2, y2
	Confidence  float64    `json:"confidence"`
	IsPerson    bool       `json:"is_person"` // human-confirmed membership, distinct from Person.IsConfirmed
	CreatedDate time.Time  `json:"created_date"`
}

// Album associates a person with an export destination directory.
type Album struct {
	ID         int64  `json:"id"`
	PersonID   int64  `json:"person_id"`
	OutputPath string `json:"output_path"`
}

// UnassignedFace is the slim face record consumed by the clustering engine.
type UnassignedFace struct {
	ID         int64
	Embedding  []float32
	Confidence float64
}

// PersonFace joins a face with its owning image path for curation views.
type PersonFace struct {
	FaceID     int64      `json:"face_id"`
	ImageID    int64      `json:"image_id"`
	FilePath   string     `json:"file_path"`
	BBox       [4]float64 `json:"bbox"`
	Confidence float64    `json:"confidence"`
	IsPerson   bool       `json:"is_person"`
}

// PersonStat aggregates face counts for one person, split by the
// per-face confirmation flag.
type PersonStat struct {
	PersonID         int64  `json:"person_id"`
	Name             string `json:"name"`
	IsConfirmed      bool   `json:"is_confirmed"`
	ConfirmedFaces   int    `json:"confirmed_faces"`
	UnconfirmedFaces int    `json:"unconfirmed_faces"`
}

// PersonPhoto is one photo containing a given person, with the total number
// of faces on that photo across all owners. TotalFaces decides the
// solo/group partition during export.
type PersonPhoto struct {
	FilePath   string  `json:"file_path"`
	FileName   string  `json:"file_name"`
	TotalFaces int     `json:"total_faces"`
	Confidence float64 `json:"confidence"`
}

// PersonAlbum joins a confirmed person with its configured export destination.
type PersonAlbum struct {
	PersonID   int64  `json:"person_id"`
	Name       string `json:"name"`
	OutputPath string `json:"output_path"`
}

// StatusCounts holds per-status image counts for a folder.
type StatusCounts struct {
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Completed  int `json:"completed"`
	Error      int `json:"error"`
}

// Total returns the number of images across all statuses.
func (c StatusCounts) Total() int {
	return c.Pending + c.Processing + c.Completed + c.Error
}
