package audit_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/frahmantamala/asset-management/internal/audit"
	auditPostgres "github.com/frahmantamala/asset-management/internal/audit/postgres"
	auditDatamodel "github.com/frahmantamala/asset-management/internal/core/datamodel/audit"
	"github.com/frahmantamala/asset-management/internal/core/datamodel/identity"
	"github.com/frahmantamala/asset-management/internal/core/events"
	"github.com/frahmantamala/asset-management/internal/testutil"
	"github.com/frahmantamala/asset-management/pkg/clock"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/segmentio/kafka-go"
	"gorm.io/gorm"
)

func TestAudit(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Audit Suite")
}

type capturePublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (c *capturePublisher) Publish(_ context.Context, event events.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
	return nil
}

type fakeWriter struct {
	messages []kafka.Message
	fail     error
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.fail != nil {
		return f.fail
	}
	f.messages = append(f.messages, msgs...)
	return nil
}

func (f *fakeWriter) Close() error { return nil }

type fakeReader struct {
	messages []kafka.Message
	cancel   context.CancelFunc
}

func (f *fakeReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	if len(f.messages) == 0 {
		f.cancel()
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	msg := f.messages[0]
	f.messages = f.messages[1:]
	return msg, nil
}

func (f *fakeReader) Close() error { return nil }

var _ = Describe("Message", func() {
	It("should use the target string for additions", func() {
		Expect(audit.Message(audit.Addition, "Laptops", nil)).To(Equal("Laptops"))
	})

	It("should list changed fields for changes", func() {
		Expect(audit.Message(audit.Change, "Laptops", []string{"title", "description"})).
			To(Equal("[title, description] on Laptops"))
	})

	It("should use the captured title for deletions", func() {
		Expect(audit.Message(audit.Deletion, "Laptops", nil)).To(Equal("Laptops"))
	})

	It("should fall back to Unknown for empty titles", func() {
		Expect(audit.Message(audit.Addition, "", nil)).To(Equal("Unknown"))
	})
})

var _ = Describe("Diff", func() {
	It("should return changed field names in order", func() {
		before := audit.Snapshot{{Name: "title", Value: "a"}, {Name: "description", Value: "x"}, {Name: "is_active", Value: "true"}}
		after := audit.Snapshot{{Name: "title", Value: "b"}, {Name: "description", Value: "x"}, {Name: "is_active", Value: "false"}}
		Expect(audit.Diff(before, after)).To(Equal([]string{"title", "is_active"}))
	})

	It("should return nothing for identical snapshots", func() {
		s := audit.Snapshot{{Name: "title", Value: "a"}}
		Expect(audit.Diff(s, s)).To(BeEmpty())
	})
})

var _ = Describe("Recorder", func() {
	var (
		db        *gorm.DB
		recorder  *audit.Recorder
		publisher *capturePublisher
		actor     *identity.User
		now       time.Time
	)

	BeforeEach(func() {
		var err error
		db, err = testutil.NewDB()
		Expect(err).NotTo(HaveOccurred())
		actor, err = testutil.CreateUser(db, "admin@example.com", "Admin", "secret-pass", true, true)
		Expect(err).NotTo(HaveOccurred())

		now = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
		publisher = &capturePublisher{}
		recorder = audit.NewRecorder(auditPostgres.NewLogRepository(db), publisher, clock.NewFake(now), testutil.NewLogger())
	})

	count := func() int64 {
		var n int64
		Expect(db.Model(&auditDatamodel.LogEntry{}).Count(&n).Error).To(Succeed())
		return n
	}

	It("should store additions with the object id", func() {
		entry, err := recorder.Record(db, audit.Entry{ActorID: actor.ID, Entity: "category", ObjectID: "abc", Action: audit.Addition, Title: "Laptops"})
		Expect(err).NotTo(HaveOccurred())
		Expect(entry.ObjectID).NotTo(BeNil())
		Expect(*entry.ObjectID).To(Equal("abc"))
		Expect(entry.Message).To(Equal("Laptops"))
		Expect(entry.ActionTime).To(BeTemporally("==", now))
		Expect(count()).To(Equal(int64(1)))
	})

	It("should skip changes without changed fields", func() {
		entry, err := recorder.Record(db, audit.Entry{ActorID: actor.ID, Entity: "category", ObjectID: "abc", Action: audit.Change, Title: "Laptops"})
		Expect(err).NotTo(HaveOccurred())
		Expect(entry).To(BeNil())
		Expect(count()).To(BeZero())
	})

	It("should keep changed fields as JSON metadata", func() {
		entry, err := recorder.Record(db, audit.Entry{ActorID: actor.ID, Entity: "category", ObjectID: "abc", Action: audit.Change, Title: "Laptops", ChangedFields: []string{"title"}})
		Expect(err).NotTo(HaveOccurred())
		Expect(entry.Message).To(Equal("[title] on Laptops"))

		var fields []string
		Expect(json.Unmarshal(entry.ChangedFields, &fields)).To(Succeed())
		Expect(fields).To(Equal([]string{"title"}))
	})

	It("should not store the object id of deletions", func() {
		entry, err := recorder.Record(db, audit.Entry{ActorID: actor.ID, Entity: "category", ObjectID: "abc", Action: audit.Deletion, Title: "Laptops"})
		Expect(err).NotTo(HaveOccurred())
		Expect(entry.ObjectID).To(BeNil())
	})

	It("should roll back with the surrounding transaction", func() {
		err := db.Transaction(func(tx *gorm.DB) error {
			if _, err := recorder.Record(tx, audit.Entry{ActorID: actor.ID, Entity: "category", Action: audit.Addition, Title: "Laptops"}); err != nil {
				return err
			}
			return errors.New("mutation failed")
		})
		Expect(err).To(HaveOccurred())
		Expect(count()).To(BeZero())
	})

	It("should announce entries to the publisher", func() {
		entry, err := recorder.Record(db, audit.Entry{ActorID: actor.ID, Entity: "category", ObjectID: "abc", Action: audit.Addition, Title: "Laptops"})
		Expect(err).NotTo(HaveOccurred())

		recorder.Announce(context.Background(), entry, nil)
		Expect(publisher.events).To(HaveLen(1))
		recorded := publisher.events[0].(*events.AuditRecordedEvent)
		Expect(recorded.Entity).To(Equal("category"))
		Expect(recorded.ObjectID).To(Equal("abc"))
	})

	It("should list newest entries first", func() {
		_, err := recorder.Record(db, audit.Entry{ActorID: actor.ID, Entity: "category", Action: audit.Addition, Title: "First"})
		Expect(err).NotTo(HaveOccurred())
		later := audit.NewRecorder(auditPostgres.NewLogRepository(db), nil, clock.NewFake(now.Add(time.Hour)), testutil.NewLogger())
		_, err = later.Record(db, audit.Entry{ActorID: actor.ID, Entity: "category", Action: audit.Addition, Title: "Second"})
		Expect(err).NotTo(HaveOccurred())

		entries, err := recorder.List(context.Background(), audit.ListFilter{Limit: 10})
		Expect(err).NotTo(HaveOccurred())
		Expect(entries).To(HaveLen(2))
		Expect(entries[0].Message).To(Equal("Second"))
		Expect(entries[0].Actor.Email).To(Equal("admin@example.com"))
	})

	It("should keep entries of a deleted actor and name them Unknown", func() {
		Expect(db.Exec("PRAGMA foreign_keys = ON").Error).To(Succeed())
		_, err := recorder.Record(db, audit.Entry{ActorID: actor.ID, Entity: "category", Action: audit.Addition, Title: "Laptops"})
		Expect(err).NotTo(HaveOccurred())

		Expect(db.Delete(&identity.User{}, "id = ?", actor.ID).Error).To(Succeed())

		entries, err := recorder.List(context.Background(), audit.ListFilter{Limit: 10})
		Expect(err).NotTo(HaveOccurred())
		Expect(entries).To(HaveLen(1))
		Expect(entries[0].ActorID).To(BeNil())
		Expect(entries[0].ActorName()).To(Equal("Unknown"))
	})
})

var _ = Describe("Stream", func() {
	It("should write audit events keyed by entity", func() {
		writer := &fakeWriter{}
		stream := audit.NewStream(writer, testutil.NewLogger())
		event := events.NewAuditRecordedEvent("e1", "u1", "asset", "a1", 1, "Laptop", time.Now())

		Expect(stream.Handle(context.Background(), event)).To(Succeed())
		Expect(writer.messages).To(HaveLen(1))
		Expect(string(writer.messages[0].Key)).To(Equal("asset"))
		Expect(string(writer.messages[0].Value)).To(ContainSubstring(`"entry_id":"e1"`))
	})

	It("should surface write failures", func() {
		writer := &fakeWriter{fail: errors.New("broker down")}
		stream := audit.NewStream(writer, testutil.NewLogger())
		event := events.NewAuditRecordedEvent("e1", "u1", "asset", "", 3, "Laptop", time.Now())

		err := stream.Handle(context.Background(), event)
		Expect(err).To(MatchError(ContainSubstring("broker down")))
	})

	It("should reject other event types", func() {
		stream := audit.NewStream(&fakeWriter{}, testutil.NewLogger())
		Expect(stream.Handle(context.Background(), events.BaseEvent{Type: "other"})).NotTo(Succeed())
	})

	It("should tail streamed entries and skip garbage", func() {
		writer := &fakeWriter{}
		stream := audit.NewStream(writer, testutil.NewLogger())
		event := events.NewAuditRecordedEvent("e1", "u1", "asset", "a1", 2, "Laptop", time.Now())
		Expect(stream.Handle(context.Background(), event)).To(Succeed())

		ctx, cancel := context.WithCancel(context.Background())
		reader := &fakeReader{
			messages: []kafka.Message{{Value: []byte("not json")}, writer.messages[0]},
			cancel:   cancel,
		}
		var seen []string
		err := audit.Tail(ctx, reader, testutil.NewLogger(), func(e *events.AuditRecordedEvent) error {
			seen = append(seen, e.EntryID+":"+e.Message)
			return nil
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(seen).To(Equal([]string{"e1:Laptop"}))
	})
})
