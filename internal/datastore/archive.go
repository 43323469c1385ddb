package datastore

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tphakala/skyarchive/internal/datastore/entities"
	"github.com/tphakala/skyarchive/internal/datastore/repository"
	"github.com/tphakala/skyarchive/internal/errors"
	"github.com/tphakala/skyarchive/internal/metadata"
)

// Observatory is a camera installation.
type Observatory struct {
	PublicID  string
	Name      string
	Latitude  float64
	Longitude float64
	Altitude  float64
	Owner     string
}

// File is a stored blob attached to an observation.
type File struct {
	RepositoryFname string
	FileName        string
	MimeType        string
	SemanticType    string
	Time            float64
	Size            int64
	Metadata        metadata.Map
}

// Observation is a timelapse image or moving-object event with its metadata.
type Observation struct {
	PublicID      string
	ObservatoryID string
	Time          float64
	Type          string
	Metadata      metadata.Map
	Files         []File
}

// Group is an observation group with member public ids in order.
type Group struct {
	PublicID     string
	SemanticType string
	Time         float64
	Members      []string
	Metadata     metadata.Map
}

// Query selects observations. Zero fields do not filter; the time window applies
// when either bound is non-zero.
type Query struct {
	ObservatoryID string
	TimeMin       float64
	TimeMax       float64
	Type          string
	Category      string
	HasKey        string
	Limit         int
}

// SatelliteElements is one tabulated element set.
type SatelliteElements = entities.SatelliteElements

// Archive implements the archive capabilities the pipeline consumes. All
// methods accept a context and return categorised errors: not-found for missing
// records, archive-unavailable for transport failures, database otherwise.
type Archive struct {
	db           *gorm.DB
	obstories    repository.ObservatoryRepository
	observations repository.ObservationRepository
	files        repository.FileRepository
	groups       repository.GroupRepository
	satellites   repository.SatelliteRepository
	now          func() float64
}

// NewArchive wraps an open database.
func NewArchive(db *gorm.DB) *Archive {
	return newArchive(db, func() float64 {
		return float64(time.Now().UnixNano()) / 1e9
	})
}

func newArchive(db *gorm.DB, now func() float64) *Archive {
	return &Archive{
		db:           db,
		obstories:    repository.NewObservatoryRepository(db),
		observations: repository.NewObservationRepository(db),
		files:        repository.NewFileRepository(db),
		groups:       repository.NewGroupRepository(db),
		satellites:   repository.NewSatelliteRepository(db),
		now:          now,
	}
}

// Transaction runs fn against an Archive bound to one database transaction.
// Every write made through tx commits together or not at all.
func (a *Archive) Transaction(ctx context.Context, fn func(tx *Archive) error) error {
	err := a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(newArchive(tx, a.now))
	})
	return classify(err, "transaction")
}

// Ping checks the connection.
func (a *Archive) Ping(ctx context.Context) error {
	sqlDB, err := a.db.DB()
	if err != nil {
		return archiveUnavailable(err, "ping")
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return archiveUnavailable(err, "ping")
	}
	return nil
}

func (a *Archive) obstoryID(ctx context.Context, publicID string) (*entities.Observatory, error) {
	o, err := a.obstories.GetByPublicID(ctx, publicID)
	if errors.Is(err, repository.ErrObservatoryNotFound) {
		return nil, notFoundError(err, "observatory", publicID)
	}
	return o, classify(err, "get_observatory", "observatory_id", publicID)
}

func (a *Archive) observationID(ctx context.Context, publicID string) (uint, error) {
	ids, err := a.observations.IDsByPublicID(ctx, []string{publicID})
	if err != nil {
		return 0, classify(err, "get_observation", "observation_id", publicID)
	}
	id, ok := ids[publicID]
	if !ok {
		return 0, notFoundError(repository.ErrObservationNotFound, "observation", publicID)
	}
	return id, nil
}

// GetObservatory returns the observatory with the given public id.
func (a *Archive) GetObservatory(ctx context.Context, publicID string) (*Observatory, error) {
	o, err := a.obstoryID(ctx, publicID)
	if err != nil {
		return nil, err
	}
	out := toObservatory(o)
	return &out, nil
}

// ListObservatories returns every observatory.
func (a *Archive) ListObservatories(ctx context.Context) ([]Observatory, error) {
	rows, err := a.obstories.List(ctx)
	if err != nil {
		return nil, classify(err, "list_observatories")
	}
	out := make([]Observatory, len(rows))
	for i, o := range rows {
		out[i] = toObservatory(o)
	}
	return out, nil
}

// UpsertObservatory creates an observatory or updates its owner and name.
func (a *Archive) UpsertObservatory(ctx context.Context, o Observatory) error {
	err := a.obstories.Upsert(ctx, &entities.Observatory{
		PublicID:  o.PublicID,
		Name:      o.Name,
		Latitude:  o.Latitude,
		Longitude: o.Longitude,
		Altitude:  o.Altitude,
		Owner:     o.Owner,
	})
	return classify(err, "upsert_observatory", "observatory_id", o.PublicID)
}

// ObservatoryStatus returns the effective observatory metadata at utc.
func (a *Archive) ObservatoryStatus(ctx context.Context, publicID string, utc float64) (metadata.Map, error) {
	o, err := a.obstoryID(ctx, publicID)
	if err != nil {
		return nil, err
	}
	rows, err := a.obstories.MetadataUntil(ctx, o.ID, utc)
	if err != nil {
		return nil, classify(err, "observatory_status", "observatory_id", publicID)
	}
	records := make([]metadata.Record, len(rows))
	for i := range rows {
		records[i] = rows[i].Record()
	}
	return metadata.Latest(records, utc), nil
}

// SetObservatoryMetadata appends a fact valid from utc.
func (a *Archive) SetObservatoryMetadata(ctx context.Context, publicID, key string, value metadata.Value, user string, utc float64) error {
	if !value.Valid() {
		return validationError("metadata value is empty", key, value)
	}
	o, err := a.obstoryID(ctx, publicID)
	if err != nil {
		return err
	}
	row := &entities.ObservatoryMetadata{
		ObservatoryID: o.ID,
		Meta:          entities.NewMeta(key, value, utc, a.now(), user),
	}
	return classify(a.obstories.AppendMetadata(ctx, row), "set_observatory_metadata",
		"observatory_id", publicID, "key", key)
}

// DeleteObservatoryMetadata removes facts with the given keys in [tMin, tMax].
func (a *Archive) DeleteObservatoryMetadata(ctx context.Context, publicID string, keys []string, tMin, tMax float64) (int64, error) {
	o, err := a.obstoryID(ctx, publicID)
	if err != nil {
		return 0, err
	}
	n, err := a.obstories.DeleteMetadata(ctx, o.ID, keys, tMin, tMax)
	return n, classify(err, "delete_observatory_metadata", "observatory_id", publicID)
}

// CreateObservation stores an observation with its metadata and files.
func (a *Archive) CreateObservation(ctx context.Context, obs Observation) error {
	o, err := a.obstoryID(ctx, obs.ObservatoryID)
	if err != nil {
		return err
	}
	setAt := a.now()
	e := &entities.Observation{
		PublicID:      obs.PublicID,
		ObservatoryID: o.ID,
		ObsTime:       obs.Time,
		ObsType:       obs.Type,
	}
	for key, v := range obs.Metadata {
		e.Metadata = append(e.Metadata, entities.ObservationMetadata{Meta: entities.NewMeta(key, v, obs.Time, setAt, "")})
	}
	for _, f := range obs.Files {
		e.Files = append(e.Files, toFileEntity(f, setAt))
	}
	return classify(a.observations.Create(ctx, e), "create_observation", "observation_id", obs.PublicID)
}

// AddFile attaches a file record to an observation.
func (a *Archive) AddFile(ctx context.Context, observationID string, f File) error {
	id, err := a.observationID(ctx, observationID)
	if err != nil {
		return err
	}
	e := toFileEntity(f, a.now())
	e.ObservationID = id
	return classify(a.files.Create(ctx, &e), "add_file", "repository_fname", f.RepositoryFname)
}

// GetObservation returns an observation with metadata and files.
func (a *Archive) GetObservation(ctx context.Context, publicID string) (*Observation, error) {
	e, err := a.observations.GetByPublicID(ctx, publicID)
	if errors.Is(err, repository.ErrObservationNotFound) {
		return nil, notFoundError(err, "observation", publicID)
	}
	if err != nil {
		return nil, classify(err, "get_observation", "observation_id", publicID)
	}
	out := toObservation(e)
	return &out, nil
}

func (a *Archive) filter(ctx context.Context, q Query) (*repository.ObservationFilter, error) {
	f := &repository.ObservationFilter{
		TimeMin:  q.TimeMin,
		TimeMax:  q.TimeMax,
		ObsType:  q.Type,
		Category: q.Category,
		HasKey:   q.HasKey,
		Limit:    q.Limit,
	}
	if q.ObservatoryID != "" {
		o, err := a.obstoryID(ctx, q.ObservatoryID)
		if err != nil {
			return nil, err
		}
		f.ObservatoryID = &o.ID
	}
	return f, nil
}

// SearchObservations returns matching observations ordered by time, with metadata.
func (a *Archive) SearchObservations(ctx context.Context, q Query) ([]Observation, error) {
	f, err := a.filter(ctx, q)
	if err != nil {
		return nil, err
	}
	rows, err := a.observations.Search(ctx, f)
	if err != nil {
		return nil, classify(err, "search_observations")
	}
	out := make([]Observation, len(rows))
	for i, e := range rows {
		out[i] = toObservation(e)
	}
	return out, nil
}

// SetObservationMetadata replaces key on the observation.
func (a *Archive) SetObservationMetadata(ctx context.Context, publicID, key string, value metadata.Value, user string, utc float64) error {
	if !value.Valid() {
		return validationError("metadata value is empty", key, value)
	}
	id, err := a.observationID(ctx, publicID)
	if err != nil {
		return err
	}
	row := &entities.ObservationMetadata{
		ObservationID: id,
		Meta:          entities.NewMeta(key, value, utc, a.now(), user),
	}
	return classify(a.observations.SetMetadata(ctx, row), "set_observation_metadata",
		"observation_id", publicID, "key", key)
}

// DeleteObservationMetadata removes keys from every observation q selects.
func (a *Archive) DeleteObservationMetadata(ctx context.Context, q Query, keys []string) (int64, error) {
	f, err := a.filter(ctx, q)
	if err != nil {
		return 0, err
	}
	n, err := a.observations.DeleteMetadata(ctx, f, keys)
	return n, classify(err, "delete_observation_metadata")
}

// GetFile returns the file stored under repositoryFname.
func (a *Archive) GetFile(ctx context.Context, repositoryFname string) (*File, error) {
	e, err := a.files.GetByRepositoryName(ctx, repositoryFname)
	if errors.Is(err, repository.ErrFileNotFound) {
		return nil, notFoundError(err, "file", repositoryFname)
	}
	if err != nil {
		return nil, classify(err, "get_file", "repository_fname", repositoryFname)
	}
	out := toFile(e)
	return &out, nil
}

// SetFileMetadata replaces key on the file.
func (a *Archive) SetFileMetadata(ctx context.Context, repositoryFname, key string, value metadata.Value, user string, utc float64) error {
	e, err := a.files.GetByRepositoryName(ctx, repositoryFname)
	if errors.Is(err, repository.ErrFileNotFound) {
		return notFoundError(err, "file", repositoryFname)
	}
	if err != nil {
		return classify(err, "get_file", "repository_fname", repositoryFname)
	}
	row := &entities.FileMetadata{FileID: e.ID, Meta: entities.NewMeta(key, value, utc, a.now(), user)}
	return classify(a.files.SetMetadata(ctx, row), "set_file_metadata", "repository_fname", repositoryFname)
}

// CreateGroup stores a group whose members are given by public id, in order.
func (a *Archive) CreateGroup(ctx context.Context, g Group, user string, creationTime float64) error {
	ids, err := a.observations.IDsByPublicID(ctx, g.Members)
	if err != nil {
		return classify(err, "create_group", "group_id", g.PublicID)
	}
	memberIDs := make([]uint, 0, len(g.Members))
	for _, m := range g.Members {
		id, ok := ids[m]
		if !ok {
			return notFoundError(repository.ErrObservationNotFound, "observation", m)
		}
		memberIDs = append(memberIDs, id)
	}

	e := &entities.ObservationGroup{
		PublicID:     g.PublicID,
		SemanticType: g.SemanticType,
		Time:         g.Time,
		SetAt:        creationTime,
		SetBy:        user,
	}
	return classify(a.groups.Create(ctx, e, memberIDs), "create_group", "group_id", g.PublicID)
}

// GetGroup returns a group with members and metadata.
func (a *Archive) GetGroup(ctx context.Context, publicID string) (*Group, error) {
	e, err := a.groups.GetByPublicID(ctx, publicID)
	if errors.Is(err, repository.ErrGroupNotFound) {
		return nil, notFoundError(err, "observation_group", publicID)
	}
	if err != nil {
		return nil, classify(err, "get_group", "group_id", publicID)
	}
	out := toGroup(e)
	return &out, nil
}

// SearchGroups returns groups of semanticType in [tMin, tMax] ordered by time.
func (a *Archive) SearchGroups(ctx context.Context, semanticType string, tMin, tMax float64) ([]Group, error) {
	rows, err := a.groups.Search(ctx, semanticType, tMin, tMax)
	if err != nil {
		return nil, classify(err, "search_groups")
	}
	out := make([]Group, len(rows))
	for i, e := range rows {
		out[i] = toGroup(e)
	}
	return out, nil
}

// DeleteGroupsInWindow removes groups of semanticType in [tMin, tMax] along with
// their metadata.
func (a *Archive) DeleteGroupsInWindow(ctx context.Context, semanticType string, tMin, tMax float64) (int64, error) {
	n, err := a.groups.DeleteInWindow(ctx, semanticType, tMin, tMax)
	return n, classify(err, "delete_groups", "semantic_type", semanticType)
}

// SetGroupMetadata replaces key on the group.
func (a *Archive) SetGroupMetadata(ctx context.Context, groupID, key string, value metadata.Value, user string, utc float64) error {
	if !value.Valid() {
		return validationError("metadata value is empty", key, value)
	}
	e, err := a.groups.GetByPublicID(ctx, groupID)
	if errors.Is(err, repository.ErrGroupNotFound) {
		return notFoundError(err, "observation_group", groupID)
	}
	if err != nil {
		return classify(err, "get_group", "group_id", groupID)
	}
	row := &entities.ObservationGroupMetadata{GroupID: e.ID, Meta: entities.NewMeta(key, value, utc, a.now(), user)}
	return classify(a.groups.SetMetadata(ctx, row), "set_group_metadata", "group_id", groupID, "key", key)
}

// ImportSatellites stores element sets, replacing duplicates.
func (a *Archive) ImportSatellites(ctx context.Context, rows []*SatelliteElements) (int, error) {
	n, err := a.satellites.Upsert(ctx, rows)
	return n, classify(err, "import_satellites")
}

// SatelliteCandidates returns the element sets usable at utc: non-debris, not
// decayed, epoch within window, one per object.
func (a *Archive) SatelliteCandidates(ctx context.Context, utc float64, window time.Duration) ([]*SatelliteElements, error) {
	rows, err := a.satellites.Candidates(ctx, utc, window.Seconds())
	return rows, classify(err, "satellite_candidates")
}

// SatelliteCount returns the number of stored element sets.
func (a *Archive) SatelliteCount(ctx context.Context) (int64, error) {
	n, err := a.satellites.Count(ctx)
	return n, classify(err, "satellite_count")
}

func toObservatory(o *entities.Observatory) Observatory {
	return Observatory{
		PublicID:  o.PublicID,
		Name:      o.Name,
		Latitude:  o.Latitude,
		Longitude: o.Longitude,
		Altitude:  o.Altitude,
		Owner:     o.Owner,
	}
}

func toObservation(e *entities.Observation) Observation {
	out := Observation{
		PublicID: e.PublicID,
		Time:     e.ObsTime,
		Type:     e.ObsType,
		Metadata: make(metadata.Map, len(e.Metadata)),
	}
	if e.Observatory != nil {
		out.ObservatoryID = e.Observatory.PublicID
	}
	for _, m := range e.Metadata {
		out.Metadata[m.Key] = m.Value()
	}
	for i := range e.Files {
		out.Files = append(out.Files, toFile(&e.Files[i]))
	}
	return out
}

func toFile(e *entities.File) File {
	out := File{
		RepositoryFname: e.RepositoryFname,
		FileName:        e.FileName,
		MimeType:        e.MimeType,
		SemanticType:    e.SemanticType,
		Time:            e.FileTime,
		Size:            e.FileSize,
		Metadata:        make(metadata.Map, len(e.Metadata)),
	}
	for _, m := range e.Metadata {
		out.Metadata[m.Key] = m.Value()
	}
	return out
}

func toFileEntity(f File, setAt float64) entities.File {
	e := entities.File{
		RepositoryFname: f.RepositoryFname,
		FileName:        f.FileName,
		MimeType:        f.MimeType,
		SemanticType:    f.SemanticType,
		FileTime:        f.Time,
		FileSize:        f.Size,
	}
	for key, v := range f.Metadata {
		e.Metadata = append(e.Metadata, entities.FileMetadata{Meta: entities.NewMeta(key, v, f.Time, setAt, "")})
	}
	return e
}

func toGroup(e *entities.ObservationGroup) Group {
	out := Group{
		PublicID:     e.PublicID,
		SemanticType: e.SemanticType,
		Time:         e.Time,
		Metadata:     make(metadata.Map, len(e.Metadata)),
	}
	for _, m := range e.Members {
		if m.Observation != nil {
			out.Members = append(out.Members, m.Observation.PublicID)
		}
	}
	for _, m := range e.Metadata {
		out.Metadata[m.Key] = m.Value()
	}
	return out
}
