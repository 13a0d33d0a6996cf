// Package resource maps opaque resource locators onto resource kinds.
//
// A locator has the form
//
//	content://<authority>/<path>
//
// where <path> is one of the fixed patterns below. "#" stands for a single
// numeric identity, "*" for a comma-delimited list of identities:
//
//	trackpoints                 TrackPoints
//	trackpoints/#               TrackPointByID
//	trackpoints/trackid/*       TrackPointsByTrackIDs
//	tracks                      Tracks
//	tracks/sensorstats/#        TrackSensorStats
//	tracks/*                    TracksByIDs
//	markers                     Markers
//	markers/#                   MarkerByID
//	markers/trackid/*           MarkersByTrackIDs
//
// Patterns are tried in the order listed, so the literal "sensorstats"
// segment always wins over the "tracks/*" list form. Resolve is pure: the
// same locator always yields the same Match.
package resource

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/roach88/trackstore/internal/errs"
	"github.com/roach88/trackstore/internal/schema"
)

// Scheme is the only accepted locator scheme.
const Scheme = "content"

// DefaultAuthority is used when no authority is configured.
const DefaultAuthority = "de.dennisguse.opentracks"

// Path segments used by the locator patterns.
const (
	segTrackID     = "trackid"
	segSensorStats = "sensorstats"
	listDelimiter  = ","
)

// Kind identifies what a locator addresses.
type Kind int

const (
	TrackPoints Kind = iota + 1
	TrackPointByID
	TrackPointsByTrackIDs
	Tracks
	TrackSensorStats
	TracksByIDs
	Markers
	MarkerByID
	MarkersByTrackIDs
)

func (k Kind) String() string {
	switch k {
	case TrackPoints:
		return "TrackPoints"
	case TrackPointByID:
		return "TrackPointByID"
	case TrackPointsByTrackIDs:
		return "TrackPointsByTrackIDs"
	case Tracks:
		return "Tracks"
	case TrackSensorStats:
		return "TrackSensorStats"
	case TracksByIDs:
		return "TracksByIDs"
	case Markers:
		return "Markers"
	case MarkerByID:
		return "MarkerByID"
	case MarkersByTrackIDs:
		return "MarkersByTrackIDs"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Table returns the table a kind reads from or writes to.
func (k Kind) Table() *schema.Table {
	switch k {
	case TrackPoints, TrackPointByID, TrackPointsByTrackIDs, TrackSensorStats:
		return schema.TrackPoints
	case Tracks, TracksByIDs:
		return schema.Tracks
	case Markers, MarkerByID, MarkersByTrackIDs:
		return schema.Markers
	}
	return nil
}

// IsCollection reports whether the kind addresses a whole table.
func (k Kind) IsCollection() bool {
	return k == TrackPoints || k == Tracks || k == Markers
}

// Match is the result of resolving a locator.
type Match struct {
	Kind Kind

	// IDs holds the identities encoded in the locator suffix. It has exactly
	// one element for "#" patterns, one or more for "*" patterns and none for
	// collections.
	IDs []int64
}

// ID returns the single identity of a "#" match.
func (m Match) ID() int64 {
	if len(m.IDs) == 0 {
		return -1
	}
	return m.IDs[0]
}

type segment struct {
	literal string
	single  bool // "#"
	list    bool // "*"
}

type route struct {
	kind     Kind
	segments []segment
}

func lit(s string) segment { return segment{literal: s} }

var (
	one  = segment{single: true}
	many = segment{list: true}
)

// routes is ordered most specific first.
var routes = []route{
	{TrackPoints, []segment{lit(schema.TrackPoints.Name)}},
	{TrackPointByID, []segment{lit(schema.TrackPoints.Name), one}},
	{TrackPointsByTrackIDs, []segment{lit(schema.TrackPoints.Name), lit(segTrackID), many}},
	{Tracks, []segment{lit(schema.Tracks.Name)}},
	{TrackSensorStats, []segment{lit(schema.Tracks.Name), lit(segSensorStats), one}},
	{TracksByIDs, []segment{lit(schema.Tracks.Name), many}},
	{Markers, []segment{lit(schema.Markers.Name)}},
	{MarkerByID, []segment{lit(schema.Markers.Name), one}},
	{MarkersByTrackIDs, []segment{lit(schema.Markers.Name), lit(segTrackID), many}},
}

// Router resolves locators for one authority and builds locators for it.
type Router struct {
	authority string
}

// NewRouter creates a router for authority. An empty authority selects
// DefaultAuthority.
func NewRouter(authority string) *Router {
	if authority == "" {
		authority = DefaultAuthority
	}
	return &Router{authority: authority}
}

// Authority returns the authority this router accepts.
func (r *Router) Authority() string {
	return r.authority
}

// Resolve maps locator to its resource kind.
// Returns an errs.ErrUnknownResource error if no pattern matches.
func (r *Router) Resolve(locator string) (Match, error) {
	u, err := url.Parse(locator)
	if err != nil {
		return Match{}, errs.UnknownResource("resolve", locator)
	}
	if u.Scheme != Scheme || u.Host != r.authority || u.RawQuery != "" || u.Fragment != "" || u.User != nil {
		return Match{}, errs.UnknownResource("resolve", locator)
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	for _, rt := range routes {
		if ids, ok := rt.match(parts); ok {
			return Match{Kind: rt.kind, IDs: ids}, nil
		}
	}
	return Match{}, errs.UnknownResource("resolve", locator)
}

func (rt route) match(parts []string) ([]int64, bool) {
	if len(parts) != len(rt.segments) {
		return nil, false
	}

	var ids []int64
	for i, seg := range rt.segments {
		switch {
		case seg.single:
			id, ok := parseID(parts[i])
			if !ok {
				return nil, false
			}
			ids = append(ids, id)
		case seg.list:
			list, ok := parseIDList(parts[i])
			if !ok {
				return nil, false
			}
			ids = append(ids, list...)
		default:
			if parts[i] != seg.literal {
				return nil, false
			}
		}
	}
	return ids, true
}

// parseID accepts a non-empty run of ASCII digits that fits in an int64.
func parseID(s string) (int64, bool) {
	if s == "" {
		return 0, false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

func parseIDList(s string) ([]int64, bool) {
	fields := strings.Split(s, listDelimiter)
	ids := make([]int64, 0, len(fields))
	for _, f := range fields {
		id, ok := parseID(f)
		if !ok {
			return nil, false
		}
		ids = append(ids, id)
	}
	return ids, true
}

// TypeOf returns the type string for kind. Collections get the "dir"
// variant, everything else the "item" variant.
func (r *Router) TypeOf(kind Kind) (string, error) {
	var entity string
	switch kind {
	case TrackPoints, TrackPointByID, TrackPointsByTrackIDs:
		entity = schema.TrackPoints.Entity
	case Tracks, TracksByIDs:
		entity = schema.Tracks.Entity
	case TrackSensorStats:
		entity = segSensorStats
	case Markers, MarkerByID, MarkersByTrackIDs:
		entity = schema.Markers.Entity
	default:
		return "", errs.UnknownResource("type", kind.String())
	}

	variant := "item"
	if kind.IsCollection() {
		variant = "dir"
	}
	return fmt.Sprintf("vnd.android.cursor.%s/vnd.%s.%s", variant, r.authority, entity), nil
}

// Base returns the collection locator of table.
func (r *Router) Base(table *schema.Table) string {
	return fmt.Sprintf("%s://%s/%s", Scheme, r.authority, table.Name)
}

// Item returns the locator of a single row of table.
func (r *Router) Item(table *schema.Table, id int64) string {
	return r.Base(table) + "/" + strconv.FormatInt(id, 10)
}

// ByTrackIDs returns the locator of all rows of table owned by the given tracks.
func (r *Router) ByTrackIDs(table *schema.Table, trackIDs ...int64) string {
	return r.Base(table) + "/" + segTrackID + "/" + joinIDs(trackIDs)
}

// TracksByIDs returns the locator of several tracks.
func (r *Router) TracksByIDs(ids ...int64) string {
	return r.Base(schema.Tracks) + "/" + joinIDs(ids)
}

// SensorStats returns the locator of a track's sensor statistics.
func (r *Router) SensorStats(trackID int64) string {
	return r.Base(schema.Tracks) + "/" + segSensorStats + "/" + strconv.FormatInt(trackID, 10)
}

func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, listDelimiter)
}
