// Package schema declares the three fixed tables of the track store.
//
// Column names declared here are the only identifiers that ever reach SQL
// text. Caller-supplied column references are resolved against a Table's
// allow-list and replaced by these constants.
package schema

// Shared column names.
const (
	ColID          = "_id"
	ColTrackID     = "trackid"
	ColTime        = "time"
	ColName        = "name"
	ColDescription = "description"
	ColCategory    = "category"
	ColIcon        = "icon"
	ColLatitude    = "latitude"
	ColLongitude   = "longitude"
	ColAltitude    = "altitude"
	ColAccuracy    = "accuracy"
	ColBearing     = "bearing"
)

// Track columns.
const (
	ColUUID            = "uuid"
	ColActivityType    = "activity_type"
	ColStartTime       = "starttime"
	ColStopTime        = "stoptime"
	ColStartTimeOffset = "starttime_offset"
	ColNumPoints       = "numpoints"
	ColTotalDistance   = "totaldistance"
	ColTotalTime       = "totaltime"
	ColMovingTime      = "movingtime"
	ColAvgSpeed        = "avgspeed"
	ColAvgMovingSpeed  = "avgmovingspeed"
	ColMaxSpeed        = "maxspeed"
	ColMinElevation    = "minelevation"
	ColMaxElevation    = "maxelevation"
	ColElevationGain   = "elevationgain"
	ColElevationLoss   = "elevationloss"
	ColMarkerCount     = "markerCount"
)

// Track point columns.
const (
	ColType             = "type"
	ColAccuracyVertical = "accuracy_vertical"
	ColSpeed            = "speed"
	ColHeartRate        = "sensor_heartrate"
	ColCadence          = "sensor_cadence"
	ColPower            = "sensor_power"
	ColSensorDistance   = "sensor_distance"
	ColPointElevGain    = "elevation_gain"
	ColPointElevLoss    = "elevation_loss"
)

// Marker columns.
const (
	ColLength   = "length"
	ColDuration = "duration"
	ColPhotoURL = "photourl"
)

// StorageClass is the SQLite storage class a stored column accepts.
type StorageClass int

const (
	Integer StorageClass = iota
	Real
	Text
	Blob
)

func (c StorageClass) String() string {
	switch c {
	case Integer:
		return "INTEGER"
	case Real:
		return "REAL"
	case Text:
		return "TEXT"
	case Blob:
		return "BLOB"
	}
	return "UNKNOWN"
}

// Column is a stored column and its storage class.
type Column struct {
	Name  string
	Class StorageClass
}

// Table describes one of the fixed tables.
type Table struct {
	// Name is the SQL table name.
	Name string

	// Entity is the singular entity name used in type strings.
	Entity string

	// Columns are the stored columns, in schema order.
	Columns []string

	// Computed are read-only columns produced by joins. They may be projected
	// and sorted on but never written.
	Computed []string

	// Required columns must be present and non-nil on insert.
	Required []string

	allowed map[string]bool
	stored  map[string]StorageClass
}

func newTable(name, entity string, columns []Column, computed, required []string) *Table {
	t := &Table{
		Name:     name,
		Entity:   entity,
		Columns:  make([]string, 0, len(columns)),
		Computed: computed,
		Required: required,
		allowed:  make(map[string]bool, len(columns)+len(computed)),
		stored:   make(map[string]StorageClass, len(columns)),
	}
	for _, c := range columns {
		t.Columns = append(t.Columns, c.Name)
		t.allowed[c.Name] = true
		t.stored[c.Name] = c.Class
	}
	for _, c := range computed {
		t.allowed[c] = true
	}
	return t
}

// Allows reports whether column may be projected, filtered or sorted on.
func (t *Table) Allows(column string) bool {
	return t.allowed[column]
}

// Writable reports whether column is a stored column.
func (t *Table) Writable(column string) bool {
	_, ok := t.stored[column]
	return ok
}

// ClassOf returns the storage class of a stored column.
func (t *Table) ClassOf(column string) (StorageClass, bool) {
	c, ok := t.stored[column]
	return c, ok
}

// IsComputed reports whether column is produced by a join.
func (t *Table) IsComputed(column string) bool {
	return t.allowed[column] && !t.Writable(column)
}

// AllColumns returns the stored columns followed by the computed ones.
func (t *Table) AllColumns() []string {
	out := make([]string, 0, len(t.Columns)+len(t.Computed))
	out = append(out, t.Columns...)
	return append(out, t.Computed...)
}

var (
	// Tracks holds recorded activities.
	Tracks = newTable("tracks", "track",
		[]Column{
			{ColID, Integer}, {ColUUID, Blob},
			{ColName, Text}, {ColDescription, Text}, {ColCategory, Text},
			{ColActivityType, Text}, {ColIcon, Text},
			{ColStartTime, Integer}, {ColStopTime, Integer},
			{ColStartTimeOffset, Integer}, {ColNumPoints, Integer},
			{ColTotalDistance, Real}, {ColTotalTime, Integer}, {ColMovingTime, Integer},
			{ColAvgSpeed, Real}, {ColAvgMovingSpeed, Real}, {ColMaxSpeed, Real},
			{ColMinElevation, Real}, {ColMaxElevation, Real},
			{ColElevationGain, Real}, {ColElevationLoss, Real},
		},
		[]string{ColMarkerCount},
		nil,
	)

	// TrackPoints holds location fixes and sensor samples of a track.
	TrackPoints = newTable("trackpoints", "trackpoint",
		[]Column{
			{ColID, Integer}, {ColTrackID, Integer}, {ColTime, Integer}, {ColType, Integer},
			{ColLatitude, Real}, {ColLongitude, Real}, {ColAltitude, Real},
			{ColAccuracy, Real}, {ColAccuracyVertical, Real},
			{ColSpeed, Real}, {ColBearing, Real},
			{ColHeartRate, Real}, {ColCadence, Real}, {ColPower, Real}, {ColSensorDistance, Real},
			{ColPointElevGain, Real}, {ColPointElevLoss, Real},
		},
		nil,
		[]string{ColTrackID, ColTime},
	)

	// Markers holds user-placed waypoints of a track.
	Markers = newTable("markers", "marker",
		[]Column{
			{ColID, Integer}, {ColTrackID, Integer}, {ColTime, Integer},
			{ColName, Text}, {ColDescription, Text}, {ColCategory, Text}, {ColIcon, Text},
			{ColLatitude, Real}, {ColLongitude, Real}, {ColAltitude, Real},
			{ColAccuracy, Real}, {ColBearing, Real},
			{ColLength, Real}, {ColDuration, Integer}, {ColPhotoURL, Text},
		},
		nil,
		[]string{ColTrackID},
	)
)

// PointType tags a track point's role in its track.
type PointType int

const (
	SegmentStartManual    PointType = -2
	SegmentStartAutomatic PointType = -1
	TrackPoint            PointType = 0
	SegmentEndManual      PointType = 1
	Idle                  PointType = 3
)

func (p PointType) String() string {
	switch p {
	case SegmentStartManual:
		return "SEGMENT_START_MANUAL"
	case SegmentStartAutomatic:
		return "SEGMENT_START_AUTOMATIC"
	case TrackPoint:
		return "TRACKPOINT"
	case SegmentEndManual:
		return "SEGMENT_END_MANUAL"
	case Idle:
		return "IDLE"
	}
	return "UNKNOWN"
}
