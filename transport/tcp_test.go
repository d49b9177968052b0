package transport_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/redsail/redsail/client"
	"github.com/redsail/redsail/protocol"
	"github.com/redsail/redsail/storage"
	"github.com/redsail/redsail/transport"
)

const testAddr = "127.0.0.1:6682"

var _ = Describe("transport / TCP", func() {
	var tcp *transport.TCP

	BeforeEach(func() {
		tcp = makeTCPServer()
	})

	AfterEach(func() {
		Expect(tcp.Close()).To(Succeed())
	})

	dial := func() *client.Conn {
		conn, err := client.Dial(context.Background(), testAddr, zap.NewNop())
		Expect(err).To(Succeed())
		return conn
	}

	It("responds to PING with PONG", func() {
		conn := dial()
		defer conn.Close()

		v, err := conn.Do(context.Background(), "PING")
		Expect(err).To(Succeed())
		Expect(v).To(Equal(protocol.SimpleString("PONG")))
	})

	It("echoes ECHO's argument back as a bulk string", func() {
		conn := dial()
		defer conn.Close()

		v, err := conn.Do(context.Background(), "ECHO", "hey there")
		Expect(err).To(Succeed())
		Expect(v).To(Equal(protocol.BulkString("hey there")))
	})

	It("round-trips SET, GET and DEL", func() {
		conn := dial()
		defer conn.Close()

		v, err := conn.Do(context.Background(), "SET", "foo", "bar")
		Expect(err).To(Succeed())
		Expect(v).To(Equal(protocol.SimpleString("OK")))

		v, err = conn.Do(context.Background(), "GET", "foo")
		Expect(err).To(Succeed())
		Expect(v).To(Equal(protocol.BulkString("bar")))

		v, err = conn.Do(context.Background(), "DEL", "foo", "missing")
		Expect(err).To(Succeed())
		Expect(v).To(Equal(protocol.Integer(1)))
	})

	It("replies with the null value for a missing key", func() {
		conn := dial()
		defer conn.Close()

		v, err := conn.Do(context.Background(), "GET", "never-set")
		Expect(err).To(Succeed())
		Expect(v).To(Equal(protocol.Null))
	})

	It("replies with an error value for an unknown command", func() {
		conn := dial()
		defer conn.Close()

		v, err := conn.Do(context.Background(), "FLY")
		Expect(err).To(Succeed())
		Expect(v.IsError()).To(BeTrue())
		Expect(v.Str).To(HavePrefix("ERR unknown command"))
	})

	It("replies with an arity error instead of guessing", func() {
		conn := dial()
		defer conn.Close()

		v, err := conn.Do(context.Background(), "SET", "only-a-key")
		Expect(err).To(Succeed())
		Expect(v).To(Equal(protocol.ErrorString(
			"ERR wrong number of arguments for 'set' command")))
	})

	It("acknowledges QUIT and then closes the connection", func() {
		conn := dial()
		defer conn.Close()

		v, err := conn.Do(context.Background(), "QUIT")
		Expect(err).To(Succeed())
		Expect(v).To(Equal(protocol.SimpleString("OK")))

		Eventually(conn.Values(), 2*time.Second).Should(BeClosed())
	})

	Describe("push mode", func() {
		It("pushes message frames to a subscriber when a key changes", func() {
			subscriber := dial()
			defer subscriber.Close()

			v, err := subscriber.Do(context.Background(), "SUBSCRIBE", "news")
			Expect(err).To(Succeed())
			Expect(v).To(Equal(protocol.Array(
				protocol.BulkString("subscribe"),
				protocol.BulkString("news"),
				protocol.Integer(1),
			)))

			writer := dial()
			defer writer.Close()

			_, err = writer.Do(context.Background(), "SET", "news", "extra extra")
			Expect(err).To(Succeed())

			var pushed protocol.Value
			Eventually(subscriber.Values(), 2*time.Second).Should(Receive(&pushed))
			Expect(pushed).To(Equal(protocol.Array(
				protocol.BulkString("message"),
				protocol.BulkString("news"),
				protocol.BulkString("extra extra"),
			)))
		})

		It("does not push updates for keys the connection never subscribed to", func() {
			subscriber := dial()
			defer subscriber.Close()

			_, err := subscriber.Do(context.Background(), "SUBSCRIBE", "news")
			Expect(err).To(Succeed())

			writer := dial()
			defer writer.Close()

			_, err = writer.Do(context.Background(), "SET", "weather", "rain")
			Expect(err).To(Succeed())

			Consistently(subscriber.Values(), 200*time.Millisecond).ShouldNot(Receive())
		})
	})

	It("answers several commands sent back-to-back in one write burst", func() {
		conn := dial()
		defer conn.Close()

		// Three commands, three paired replies, strictly in order.
		v, err := conn.Do(context.Background(), "SET", "a", "1")
		Expect(err).To(Succeed())
		Expect(v).To(Equal(protocol.SimpleString("OK")))

		v, err = conn.Do(context.Background(), "GET", "a")
		Expect(err).To(Succeed())
		Expect(v).To(Equal(protocol.BulkString("1")))

		v, err = conn.Do(context.Background(), "DEL", "a")
		Expect(err).To(Succeed())
		Expect(v).To(Equal(protocol.Integer(1)))
	})
})

func makeTCPServer() *transport.TCP {
	log := zap.NewNop()

	tcp := transport.NewTCP(transport.Options{
		Log:          log,
		NumListeners: 1,
		Host:         "127.0.0.1",
		Port:         6682,
		Reuseport:    true,
		Store:        storage.NewInmemoryStore(),
	})

	Expect(tcp.Start(context.Background())).To(Succeed())

	// Wait for the TCP server to be listening.
	time.Sleep(100 * time.Millisecond)

	return tcp
}
