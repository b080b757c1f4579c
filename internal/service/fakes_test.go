package service

import (
	"context"
	"errors"
	"image"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Douglasgls/zona-verde-api/internal/domain"
	"github.com/Douglasgls/zona-verde-api/internal/plate"
	"github.com/Douglasgls/zona-verde-api/internal/repository"
	"github.com/Douglasgls/zona-verde-api/internal/upload"
)

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]*domain.User
}

func newFakeUserRepo() *fakeUserRepo { return &fakeUserRepo{users: map[string]*domain.User{}} }

func (r *fakeUserRepo) Create(_ context.Context, u *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[u.Username]; ok {
		return nil, repository.ErrDuplicateEntry
	}
	u.ID = len(r.users) + 1
	stored := *u
	r.users[u.Username] = &stored
	out := stored
	return &out, nil
}

func (r *fakeUserRepo) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[username]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := *u
	return &out, nil
}

func (r *fakeUserRepo) FindByID(_ context.Context, id int) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.ID == id {
			out := *u
			return &out, nil
		}
	}
	return nil, repository.ErrNotFound
}

type fakeSpotRepo struct {
	spots  map[int]*domain.Spot
	nextID int
}

func newFakeSpotRepo(spots ...domain.Spot) *fakeSpotRepo {
	r := &fakeSpotRepo{spots: map[int]*domain.Spot{}}
	for _, s := range spots {
		s := s
		r.spots[s.ID] = &s
		if s.ID > r.nextID {
			r.nextID = s.ID
		}
	}
	return r
}

func (r *fakeSpotRepo) Create(_ context.Context, s *domain.Spot) (*domain.Spot, error) {
	for _, existing := range r.spots {
		if existing.Code == s.Code {
			return nil, repository.ErrDuplicateEntry
		}
	}
	r.nextID++
	s.ID = r.nextID
	stored := *s
	r.spots[s.ID] = &stored
	return s, nil
}

func (r *fakeSpotRepo) FindByID(_ context.Context, id int) (*domain.Spot, error) {
	s, ok := r.spots[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := *s
	return &out, nil
}

func (r *fakeSpotRepo) FindByCode(_ context.Context, code string) (*domain.Spot, error) {
	for _, s := range r.spots {
		if s.Code == code {
			out := *s
			return &out, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeSpotRepo) FindByDeviceThingName(_ context.Context, thingName string) ([]domain.Spot, error) {
	var out []domain.Spot
	for _, s := range r.spots {
		if s.DeviceThingName.Valid && s.DeviceThingName.String == thingName {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (r *fakeSpotRepo) FindAll(_ context.Context) ([]domain.Spot, error) {
	out := []domain.Spot{}
	for _, s := range r.spots {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (r *fakeSpotRepo) Update(_ context.Context, s *domain.Spot) (*domain.Spot, error) {
	if _, ok := r.spots[s.ID]; !ok {
		return nil, repository.ErrNotFound
	}
	stored := *s
	r.spots[s.ID] = &stored
	return s, nil
}

func (r *fakeSpotRepo) UpdateStatus(_ context.Context, id int, status domain.SpotStatus, eventAt time.Time, source string) error {
	s, ok := r.spots[id]
	if !ok {
		return repository.ErrNotFound
	}
	s.Status = status
	s.LastEventAt.SetValid(eventAt)
	s.LastStatusSource = source
	return nil
}

func (r *fakeSpotRepo) Delete(_ context.Context, id int) error {
	if _, ok := r.spots[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.spots, id)
	return nil
}

type fakeReservationRepo struct {
	reservations map[int]*domain.Reservation
	nextID       int
	err          error
}

func newFakeReservationRepo(rs ...domain.Reservation) *fakeReservationRepo {
	r := &fakeReservationRepo{reservations: map[int]*domain.Reservation{}}
	for _, res := range rs {
		res := res
		r.reservations[res.ID] = &res
		if res.ID > r.nextID {
			r.nextID = res.ID
		}
	}
	return r
}

func (r *fakeReservationRepo) Create(_ context.Context, res *domain.Reservation) (*domain.Reservation, error) {
	r.nextID++
	res.ID = r.nextID
	stored := *res
	r.reservations[res.ID] = &stored
	return res, nil
}

func (r *fakeReservationRepo) FindByID(_ context.Context, id int) (*domain.Reservation, error) {
	res, ok := r.reservations[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := *res
	return &out, nil
}

func (r *fakeReservationRepo) FindActiveBySpot(_ context.Context, spotID int, at time.Time) (*domain.Reservation, error) {
	if r.err != nil {
		return nil, r.err
	}
	for _, res := range r.reservations {
		if res.SpotID == spotID && res.Covers(at) {
			out := *res
			return &out, nil
		}
	}
	return nil, repository.ErrNoActiveReservation
}

func (r *fakeReservationRepo) CountOverlapping(_ context.Context, spotID int, from, to time.Time, excludeID int) (int, error) {
	n := 0
	for _, res := range r.reservations {
		if res.SpotID == spotID && res.ID != excludeID && res.Status == domain.ReservationActive &&
			res.StartsAt.Before(to) && res.EndsAt.After(from) {
			n++
		}
	}
	return n, nil
}

func (r *fakeReservationRepo) Find(_ context.Context, filter domain.ReservationFilterDTO) ([]domain.Reservation, error) {
	out := []domain.Reservation{}
	for _, res := range r.reservations {
		if filter.Plate != nil && res.Plate != *filter.Plate {
			continue
		}
		if filter.SpotID != nil && res.SpotID != *filter.SpotID {
			continue
		}
		out = append(out, *res)
	}
	return out, nil
}

func (r *fakeReservationRepo) Update(_ context.Context, res *domain.Reservation) (*domain.Reservation, error) {
	if _, ok := r.reservations[res.ID]; !ok {
		return nil, repository.ErrNotFound
	}
	stored := *res
	r.reservations[res.ID] = &stored
	return res, nil
}

type fakeDeviceRepo struct {
	devices map[string]*domain.Device
	nextID  int
}

func newFakeDeviceRepo(ds ...domain.Device) *fakeDeviceRepo {
	r := &fakeDeviceRepo{devices: map[string]*domain.Device{}}
	for _, d := range ds {
		d := d
		r.devices[d.ThingName] = &d
		if d.ID > r.nextID {
			r.nextID = d.ID
		}
	}
	return r
}

func (r *fakeDeviceRepo) CreateOrUpdate(_ context.Context, d *domain.Device) (*domain.Device, error) {
	if existing, ok := r.devices[d.ThingName]; ok {
		d.ID = existing.ID
	} else {
		r.nextID++
		d.ID = r.nextID
	}
	stored := *d
	r.devices[d.ThingName] = &stored
	return d, nil
}

func (r *fakeDeviceRepo) FindByThingName(_ context.Context, thingName string) (*domain.Device, error) {
	d, ok := r.devices[thingName]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := *d
	return &out, nil
}

func (r *fakeDeviceRepo) FindAll(_ context.Context) ([]domain.Device, error) {
	out := []domain.Device{}
	for _, d := range r.devices {
		out = append(out, *d)
	}
	return out, nil
}

func (r *fakeDeviceRepo) UpdateStatus(_ context.Context, thingName string, status domain.DeviceStatus, lastSeenAt time.Time) error {
	d, ok := r.devices[thingName]
	if !ok {
		return repository.ErrNotFound
	}
	d.Status = status
	d.LastSeenAt.SetValid(lastSeenAt)
	return nil
}

type fakeEventLogRepo struct {
	entries []domain.DeviceEventLog
}

func (r *fakeEventLogRepo) Create(_ context.Context, e *domain.DeviceEventLog) error {
	e.ID = int64(len(r.entries) + 1)
	r.entries = append(r.entries, *e)
	return nil
}

type fakeCheckRepo struct {
	checks []domain.PlateCheck
	err    error
}

func (r *fakeCheckRepo) Create(_ context.Context, c *domain.PlateCheck) error {
	if r.err != nil {
		return r.err
	}
	c.CreatedAt = time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	r.checks = append(r.checks, *c)
	return nil
}

func (r *fakeCheckRepo) FindByID(_ context.Context, id uuid.UUID) (*domain.PlateCheck, error) {
	for _, c := range r.checks {
		if c.ID == id {
			out := c
			return &out, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeCheckRepo) Find(_ context.Context, filter domain.PlateCheckFilterDTO) ([]domain.PlateCheck, error) {
	out := []domain.PlateCheck{}
	for _, c := range r.checks {
		if filter.Matched != nil && c.Matched != *filter.Matched {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

// fakeRecognizer returns fixed detections and remembers the image it saw.
type fakeRecognizer struct {
	detections []plate.Detection
	err        error
	seen       image.Image
}

func (f *fakeRecognizer) Recognize(_ context.Context, img image.Image) ([]plate.Detection, error) {
	f.seen = img
	return f.detections, f.err
}

// fakeStore decodes like the disk store but keeps nothing.
type fakeStore struct {
	saved []string
}

func (f *fakeStore) SavePNG(r io.Reader, spotCode string) (string, image.Image, error) {
	img, err := upload.DecodeImage(r)
	if err != nil {
		return "", nil, err
	}
	path := "uploads/vaga-" + spotCode + "/" + strings.ToLower(spotCode) + ".png"
	f.saved = append(f.saved, path)
	return path, img, nil
}

type fakePublisher struct {
	published []*domain.PlateCheck
	err       error
}

func (f *fakePublisher) PublishPlateCheck(_ context.Context, c *domain.PlateCheck) error {
	f.published = append(f.published, c)
	return f.err
}

type fakeBroadcaster struct {
	notifications []domain.PlateCheckNotification
}

func (f *fakeBroadcaster) BroadcastPlateCheck(n domain.PlateCheckNotification) {
	f.notifications = append(f.notifications, n)
}

var errBoom = errors.New("boom")
