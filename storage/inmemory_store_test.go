package storage_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/redsail/redsail/storage"
)

var _ = Describe("storage / InmemoryStore", func() {
	Describe("Close()", func() {
		It("does not panic when closed twice", func() {
			store := storage.NewInmemoryStore()
			defer store.Close()

			Expect(func() { store.Close() }).NotTo(Panic())
			Expect(func() { store.Close() }).NotTo(Panic())
		})
	})

	Describe("Set() / Get()", func() {
		It("can read a key that is written", func() {
			store := storage.NewInmemoryStore()
			defer store.Close()

			err := store.Set(context.Background(), []byte("foo"), []byte("bar"))
			Expect(err).To(Succeed())

			value, ok, err := store.Get(context.Background(), []byte("foo"))
			Expect(err).To(Succeed())
			Expect(ok).To(BeTrue())
			Expect(value).To(Equal([]byte("bar")))
		})

		It("reports a missing key", func() {
			store := storage.NewInmemoryStore()
			defer store.Close()

			_, ok, err := store.Get(context.Background(), []byte("nope"))
			Expect(err).To(Succeed())
			Expect(ok).To(BeFalse())
		})

		It("does not block writers behind a slow update listener", func() {
			store := storage.NewInmemoryStore()
			defer store.Close()

			// Nobody ever reads from this listener, so its buffer fills.
			updateChan := store.ListenToUpdates()

			done := make(chan struct{})
			go func() {
				defer GinkgoRecover()
				defer close(done)

				for n := 0; n < 300; n++ {
					Expect(store.Set(context.Background(), []byte("k"), []byte("v"))).To(Succeed())
				}
			}()

			Eventually(done, time.Second).Should(BeClosed())

			update := <-updateChan
			Expect(update.Key).To(Equal([]byte("k")))
		})

		It("sends on the update channel when values are set", func() {
			store := storage.NewInmemoryStore()
			defer store.Close()

			updateChan := store.ListenToUpdates()
			err := store.Set(context.Background(), []byte("foo"), []byte("bar"))
			Expect(err).To(Succeed())

			update, ok := <-updateChan
			Expect(ok).To(BeTrue())
			Expect(update).To(Equal(&storage.Update{
				Key:   []byte("foo"),
				Value: []byte("bar"),
			}))
		})
	})

	Describe("Del()", func() {
		It("returns how many of the named keys existed", func() {
			store := storage.NewInmemoryStore()
			defer store.Close()

			Expect(store.Set(context.Background(), []byte("a"), []byte("1"))).To(Succeed())
			Expect(store.Set(context.Background(), []byte("b"), []byte("2"))).To(Succeed())

			removed, err := store.Del(context.Background(), []byte("a"), []byte("b"), []byte("c"))
			Expect(err).To(Succeed())
			Expect(removed).To(Equal(int64(2)))

			_, ok, err := store.Get(context.Background(), []byte("a"))
			Expect(err).To(Succeed())
			Expect(ok).To(BeFalse())
		})
	})
})
