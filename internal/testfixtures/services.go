package testfixtures

import (
	"context"
	"time"

	"github.com/example/campus-bookings/internal/application"
	"github.com/example/campus-bookings/internal/persistence"
	"github.com/example/campus-bookings/internal/persistence/memory"
)

// ServiceFactory assists tests with constructing application services on an
// in-memory store using deterministic identifiers and a controllable clock.
type ServiceFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
	Store       *memory.Store
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a ServiceFactory with defaults.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{
		Clock:       NewClock(time.Time{}),
		IDGenerator: NewIDGenerator("id"),
		Store:       memory.NewStore(),
	}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	if factory.IDGenerator == nil {
		factory.IDGenerator = NewIDGenerator("id")
	}
	if factory.Store == nil {
		factory.Store = memory.NewStore()
	}
	return factory
}

// WithClock overrides the clock used by the factory.
func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Clock = clock
	}
}

// WithIDGenerator overrides the identifier generator used by the factory.
func WithIDGenerator(generator *IDGenerator) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.IDGenerator = generator
	}
}

// WithStore overrides the backing store used by the factory.
func WithStore(store *memory.Store) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Store = store
	}
}

// BookingService constructs the allocation engine on the factory's store.
func (f *ServiceFactory) BookingService() *application.BookingService {
	return application.NewBookingService(f.Store, f.Store, f.IDGenerator.NextFunc(), f.Clock.NowFunc(), nil)
}

// EventService constructs the catalog service on the factory's store.
func (f *ServiceFactory) EventService() *application.EventService {
	return application.NewEventService(f.Store, f.Store, f.Store, f.IDGenerator.NextFunc(), f.Clock.NowFunc(), nil)
}

// AuthService constructs the authentication service on the factory's store.
func (f *ServiceFactory) AuthService(sessionTTL time.Duration) *application.AuthService {
	return application.NewAuthService(f.Store, f.Store, f.IDGenerator.NextFunc(), f.IDGenerator.NextFunc(), f.Clock.NowFunc(), sessionTTL, nil)
}

// UserService constructs the account service on the factory's store.
func (f *ServiceFactory) UserService() *application.UserService {
	return application.NewUserService(f.Store, f.IDGenerator.NextFunc(), nil)
}

// SeedUsers stores the given accounts, failing the factory's store contract on
// the first error.
func (f *ServiceFactory) SeedUsers(users ...persistence.User) error {
	for _, user := range users {
		if err := f.Store.CreateUser(context.Background(), user); err != nil {
			return err
		}
	}
	return nil
}

// SeedEvents stores the given events.
func (f *ServiceFactory) SeedEvents(events ...persistence.Event) error {
	for _, event := range events {
		if err := f.Store.CreateEvent(context.Background(), event); err != nil {
			return err
		}
	}
	return nil
}
