package booking

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"farmsync/internal/misc"
	"farmsync/internal/model"
	"farmsync/internal/relay"
	"farmsync/internal/store"
)

// Collection keys. Other tools reading the data directory depend on these
// names and on the record shapes in the model package.
const (
	KeyProviderSlots         = "provider_slots"
	KeyIncomingBookings      = "incoming_bookings"
	KeyProviderNotifications = "provider_notifications"
	KeyCurrentAlerts         = "alerts_current"
	KeyPastAlerts            = "alerts_past"
)

// Topics announced after writes to the corresponding collections. Slot and
// past-alert writes announce nothing.
const (
	TopicIncomingBookings      = "incoming-booking-updated"
	TopicProviderNotifications = "provider-noti-updated"
	TopicAlerts                = "alerts-updated"
)

const (
	dateLayout  = "2006-01-02"
	clockLayout = "15:04"
)

type logger interface {
	Debugf(format string, v ...any)
	Infof(format string, v ...any)
	Errorf(format string, v ...any)
}

// Coordinator owns the booking lifecycle: it is the only writer of the
// shared collections and announces every signal-bearing write on the bus.
// Mutating operations serialize on one mutex; none of them fail on the
// steady-state paths, missing ids and invalid input degrade to logged no-ops.
type Coordinator struct {
	store  *store.Store
	bus    *relay.Bus
	logger logger

	mu  sync.Mutex
	now func() time.Time
}

func NewCoordinator(st *store.Store, bus *relay.Bus, logger logger) *Coordinator {
	c := &Coordinator{store: st, bus: bus, logger: logger, now: time.Now}
	// Every save announces through this hook, local writes and announcements
	// cannot drift apart. Subscribed handlers must only re-read collections;
	// calling back into a mutating operation would deadlock.
	st.OnChange(c.announceChange)
	c.migrateSlots()
	return c
}

func (c *Coordinator) announceChange(name string) {
	switch name {
	case KeyIncomingBookings:
		c.bus.Announce(TopicIncomingBookings)
	case KeyProviderNotifications:
		c.bus.Announce(TopicProviderNotifications)
	case KeyCurrentAlerts:
		c.bus.Announce(TopicAlerts)
	}
}

// legacySlot covers every slot shape ever persisted: the older weekday
// records carried a "day" label instead of a date, and none had ids.
type legacySlot struct {
	ID       string `json:"id"`
	Day      string `json:"day"`
	Date     string `json:"date"`
	Start    string `json:"start"`
	End      string `json:"end"`
	IsBooked bool   `json:"isBooked"`
}

func (c *Coordinator) migrateSlots() {
	raw := store.Load(c.store, KeyProviderSlots, []legacySlot{})
	if len(raw) == 0 {
		return
	}

	today := c.now().Format(dateLayout)
	changed := false
	slots := make([]model.Slot, 0, len(raw))
	for _, ls := range raw {
		s := model.Slot{ID: ls.ID, Date: ls.Date, Start: ls.Start, End: ls.End, IsBooked: ls.IsBooked}
		if s.Date == "" && ls.Day != "" {
			s.Date = today
			changed = true
		}
		if s.ID == "" {
			s.ID = uuid.NewString()
			changed = true
		}
		slots = append(slots, s)
	}
	if !changed {
		return
	}

	c.logger.Infof("migrateSlots: Rewriting %d slot(s) to the current shape", len(slots))
	if err := store.Save(c.store, KeyProviderSlots, slots); err != nil {
		c.logger.Errorf("migrateSlots: Error saving migrated slots, err: %v", err)
	}
}

type CreateBookingParams struct {
	ProviderID string
	Slot       string // human-readable window, generated when empty
	SlotID     string // optional reference to a concrete availability slot
	Note       string
}

// CreateBooking appends a pending booking to the provider's inbox and pushes
// an unread notification, announcing both writes.
func (c *Coordinator) CreateBooking(p CreateBookingParams) model.Booking {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	slotText := p.Slot
	if slotText == "" {
		slotText = "requested at " + now.Format(clockLayout)
	}

	bk := model.Booking{
		ID:        uuid.NewString(),
		Slot:      slotText,
		SlotID:    p.SlotID,
		Status:    model.BookingPending,
		CreatedAt: now.UTC().Format(time.RFC3339),
	}

	inbox := store.Load(c.store, KeyIncomingBookings, []model.Booking{})
	inbox = append([]model.Booking{bk}, inbox...)
	if err := store.Save(c.store, KeyIncomingBookings, inbox); err != nil {
		c.logger.Errorf("CreateBooking: Error saving incoming bookings, err: %v", err)
	}

	c.pushProviderNotification("New booking request • "+slotText, "booking", "/provider-slot")

	c.logger.Infof("CreateBooking: Booking %s for Provider: %s, slot: %s", bk.ID, p.ProviderID, misc.StringLimit(slotText, 60))
	if p.Note != "" {
		c.logger.Debugf("CreateBooking: Note on Booking %s: %s", bk.ID, misc.StringLimit(p.Note, 120))
	}
	return bk
}

// AcceptBooking moves a pending booking to accepted and fans out the farmer
// alert, the provider notification, and the slot consumption. Decided
// bookings are left untouched: accept and reject are terminal.
func (c *Coordinator) AcceptBooking(id string, slotText string) (model.Booking, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	inbox := store.Load(c.store, KeyIncomingBookings, []model.Booking{})
	i := findBooking(inbox, id)
	if i < 0 {
		c.logger.Debugf("AcceptBooking: No Booking with ID: %s", id)
		return model.Booking{}, false
	}
	if inbox[i].Decided() {
		c.logger.Debugf("AcceptBooking: Booking %s already %s, ignoring", id, inbox[i].Status)
		return inbox[i], false
	}

	inbox[i].Status = model.BookingAccepted
	if err := store.Save(c.store, KeyIncomingBookings, inbox); err != nil {
		c.logger.Errorf("AcceptBooking: Error saving incoming bookings, err: %v", err)
	}

	c.pushFarmerAlert("Booking confirmed",
		fmt.Sprintf("The provider confirmed your booking for %s", slotText),
		"accepted_"+id)
	c.pushProviderNotification(fmt.Sprintf("You confirmed the booking for %s", slotText),
		"booking:accepted", "/serverpage")
	c.consumeSlot(inbox[i].SlotID)

	c.logger.Infof("AcceptBooking: Booking %s accepted", id)
	return inbox[i], true
}

// RejectBooking is the rejection counterpart of AcceptBooking. No slot is
// consumed on rejection.
func (c *Coordinator) RejectBooking(id string, slotText string) (model.Booking, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	inbox := store.Load(c.store, KeyIncomingBookings, []model.Booking{})
	i := findBooking(inbox, id)
	if i < 0 {
		c.logger.Debugf("RejectBooking: No Booking with ID: %s", id)
		return model.Booking{}, false
	}
	if inbox[i].Decided() {
		c.logger.Debugf("RejectBooking: Booking %s already %s, ignoring", id, inbox[i].Status)
		return inbox[i], false
	}

	inbox[i].Status = model.BookingRejected
	if err := store.Save(c.store, KeyIncomingBookings, inbox); err != nil {
		c.logger.Errorf("RejectBooking: Error saving incoming bookings, err: %v", err)
	}

	c.pushFarmerAlert("Booking rejected",
		fmt.Sprintf("The booking for %s was declined. Please pick another slot or provider", slotText),
		"rejected_"+id)
	c.pushProviderNotification(fmt.Sprintf("You declined the booking for %s", slotText),
		"booking:rejected", "")

	c.logger.Infof("RejectBooking: Booking %s rejected", id)
	return inbox[i], true
}

// DefineAvailability creates one slot per calendar day from startDate to
// endDate inclusive, all sharing the same time window. Invalid input is a
// logged no-op returning nil.
func (c *Coordinator) DefineAvailability(startDate, startTime, endDate, endTime string) []model.Slot {
	c.mu.Lock()
	defer c.mu.Unlock()

	start, err := time.Parse(dateLayout, startDate)
	if err != nil {
		c.logger.Debugf("DefineAvailability: Invalid start date: %s, err: %v", startDate, err)
		return nil
	}
	end, err := time.Parse(dateLayout, endDate)
	if err != nil {
		c.logger.Debugf("DefineAvailability: Invalid end date: %s, err: %v", endDate, err)
		return nil
	}
	if _, err = time.Parse(clockLayout, startTime); err != nil {
		c.logger.Debugf("DefineAvailability: Invalid start time: %s, err: %v", startTime, err)
		return nil
	}
	if _, err = time.Parse(clockLayout, endTime); err != nil {
		c.logger.Debugf("DefineAvailability: Invalid end time: %s, err: %v", endTime, err)
		return nil
	}
	if end.Before(start) {
		c.logger.Debugf("DefineAvailability: End date %s before start date %s", endDate, startDate)
		return nil
	}
	if startTime >= endTime {
		c.logger.Debugf("DefineAvailability: Start time %s not before end time %s", startTime, endTime)
		return nil
	}

	var created []model.Slot
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		created = append(created, model.Slot{
			ID:    uuid.NewString(),
			Date:  d.Format(dateLayout),
			Start: startTime,
			End:   endTime,
		})
	}

	slots := store.Load(c.store, KeyProviderSlots, []model.Slot{})
	slots = append(slots, created...)
	if err := store.Save(c.store, KeyProviderSlots, slots); err != nil {
		c.logger.Errorf("DefineAvailability: Error saving slots, err: %v", err)
		return nil
	}

	c.logger.Infof("DefineAvailability: Created %d slot(s) from %s to %s, %s-%s", len(created), startDate, endDate, startTime, endTime)
	return created
}

// DeleteSlot removes the slot with the given id.
func (c *Coordinator) DeleteSlot(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	slots := store.Load(c.store, KeyProviderSlots, []model.Slot{})
	i := findSlot(slots, id)
	if i < 0 {
		c.logger.Debugf("DeleteSlot: No Slot with ID: %s", id)
		return false
	}

	slots = append(slots[:i], slots[i+1:]...)
	if err := store.Save(c.store, KeyProviderSlots, slots); err != nil {
		c.logger.Errorf("DeleteSlot: Error saving slots, err: %v", err)
	}
	return true
}

// BookSlot marks the slot with the given id as booked, the provider's manual
// equivalent of an accepted booking consuming it.
func (c *Coordinator) BookSlot(id string) (model.Slot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	slots := store.Load(c.store, KeyProviderSlots, []model.Slot{})
	i := findSlot(slots, id)
	if i < 0 {
		c.logger.Debugf("BookSlot: No Slot with ID: %s", id)
		return model.Slot{}, false
	}

	slots[i].IsBooked = true
	if err := store.Save(c.store, KeyProviderSlots, slots); err != nil {
		c.logger.Errorf("BookSlot: Error saving slots, err: %v", err)
	}
	return slots[i], true
}

// MarkNotificationsRead flips every unread provider notification and returns
// how many it touched.
func (c *Coordinator) MarkNotificationsRead() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	list := store.Load(c.store, KeyProviderNotifications, []model.ProviderNotification{})
	marked := 0
	for i := range list {
		if list[i].IsUnread {
			list[i].IsUnread = false
			marked++
		}
	}
	if marked == 0 {
		return 0
	}
	if err := store.Save(c.store, KeyProviderNotifications, list); err != nil {
		c.logger.Errorf("MarkNotificationsRead: Error saving notifications, err: %v", err)
	}
	return marked
}

// DismissAlert moves the first alert matching signature from the current
// list to the archive.
func (c *Coordinator) DismissAlert(signature string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	current := store.Load(c.store, KeyCurrentAlerts, []model.FarmerAlert{})
	i := -1
	for j := range current {
		if current[j].Signature == signature {
			i = j
			break
		}
	}
	if i < 0 {
		c.logger.Debugf("DismissAlert: No alert with signature: %s", signature)
		return false
	}

	dismissed := current[i]
	current = append(current[:i], current[i+1:]...)

	past := store.Load(c.store, KeyPastAlerts, []model.FarmerAlert{})
	past = append([]model.FarmerAlert{dismissed}, past...)
	if err := store.Save(c.store, KeyPastAlerts, past); err != nil {
		c.logger.Errorf("DismissAlert: Error saving past alerts, err: %v", err)
	}
	if err := store.Save(c.store, KeyCurrentAlerts, current); err != nil {
		c.logger.Errorf("DismissAlert: Error saving current alerts, err: %v", err)
	}
	return true
}

func (c *Coordinator) Slots() []model.Slot {
	return store.Load(c.store, KeyProviderSlots, []model.Slot{})
}

func (c *Coordinator) IncomingBookings() []model.Booking {
	return store.Load(c.store, KeyIncomingBookings, []model.Booking{})
}

func (c *Coordinator) PendingBookings() []model.Booking {
	var pending []model.Booking
	for _, b := range c.IncomingBookings() {
		if b.Status == model.BookingPending {
			pending = append(pending, b)
		}
	}
	return pending
}

func (c *Coordinator) Notifications() []model.ProviderNotification {
	return store.Load(c.store, KeyProviderNotifications, []model.ProviderNotification{})
}

func (c *Coordinator) Alerts() []model.FarmerAlert {
	return store.Load(c.store, KeyCurrentAlerts, []model.FarmerAlert{})
}

func (c *Coordinator) PastAlerts() []model.FarmerAlert {
	return store.Load(c.store, KeyPastAlerts, []model.FarmerAlert{})
}

func (c *Coordinator) pushProviderNotification(message, typ, link string) {
	list := store.Load(c.store, KeyProviderNotifications, []model.ProviderNotification{})
	list = append([]model.ProviderNotification{{
		ID:       "noti_" + uuid.NewString(),
		Message:  misc.StringLimit(message, 160),
		Time:     c.displayTime(),
		Link:     link,
		Type:     typ,
		IsUnread: true,
	}}, list...)
	if err := store.Save(c.store, KeyProviderNotifications, list); err != nil {
		c.logger.Errorf("pushProviderNotification: Error saving notifications, err: %v", err)
	}
}

func (c *Coordinator) pushFarmerAlert(typ, message, signature string) {
	list := store.Load(c.store, KeyCurrentAlerts, []model.FarmerAlert{})
	list = append([]model.FarmerAlert{{
		Type:      typ,
		Message:   misc.StringLimit(message, 200),
		Time:      c.displayTime(),
		Signature: signature,
	}}, list...)
	if err := store.Save(c.store, KeyCurrentAlerts, list); err != nil {
		c.logger.Errorf("pushFarmerAlert: Error saving alerts, err: %v", err)
	}
}

// consumeSlot books the slot referenced by the accepted booking. Bookings
// from before slot references existed carry no id; those fall back to
// consuming the first unbooked slot, as the views always have.
func (c *Coordinator) consumeSlot(slotID string) {
	slots := store.Load(c.store, KeyProviderSlots, []model.Slot{})

	i := -1
	if slotID != "" {
		i = findSlot(slots, slotID)
		if i < 0 {
			c.logger.Debugf("consumeSlot: No Slot with ID: %s", slotID)
			return
		}
		if slots[i].IsBooked {
			c.logger.Debugf("consumeSlot: Slot %s already booked", slotID)
			return
		}
	} else {
		for j := range slots {
			if !slots[j].IsBooked {
				i = j
				break
			}
		}
		if i < 0 {
			c.logger.Debugf("consumeSlot: No free slot to consume")
			return
		}
	}

	slots[i].IsBooked = true
	if err := store.Save(c.store, KeyProviderSlots, slots); err != nil {
		c.logger.Errorf("consumeSlot: Error saving slots, err: %v", err)
	}
}

func (c *Coordinator) displayTime() string {
	return c.now().Format(clockLayout) + " today"
}

func findBooking(bs []model.Booking, id string) int {
	for i := range bs {
		if bs[i].ID == id {
			return i
		}
	}
	return -1
}

func findSlot(ss []model.Slot, id string) int {
	for i := range ss {
		if ss[i].ID == id {
			return i
		}
	}
	return -1
}
