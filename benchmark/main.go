package main

import (
	"context"
	"fmt"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/catatsuy/kusari/internal/config"
	"github.com/catatsuy/kusari/internal/server"
)

const defaultAddr = "127.0.0.1:11311"

func main() {
	if err := runDemo(defaultAddr); err != nil {
		panic(err)
	}
}

func runDemo(addr string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv := server.NewServer(server.Config{
		ListenAddr: addr,
		Lists:      []config.List{{Name: "greetings", Size: 5}},
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ctx)
	}()

	select {
	case <-srv.Ready():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed before ready: %w", err)
		}
		return fmt.Errorf("server exited before ready")
	case <-time.After(3 * time.Second):
		return fmt.Errorf("server did not become ready")
	}

	addr = srv.Addr()
	if addr == "" {
		return fmt.Errorf("server address is empty")
	}

	mc := memcache.New(addr)

	for _, v := range []string{"hello", "world"} {
		if err := mc.Set(&memcache.Item{Key: "greetings", Value: []byte(v)}); err != nil {
			return fmt.Errorf("set %s failed: %w", v, err)
		}
		fmt.Printf("set greetings %s (appended)\n", v)
	}

	item, err := mc.Get("greetings")
	if err != nil {
		return fmt.Errorf("get failed: %w", err)
	}
	fmt.Printf("get greetings => %s (current element)\n", string(item.Value))

	if err := mc.Delete("greetings"); err != nil {
		return fmt.Errorf("delete failed: %w", err)
	}
	item, err = mc.Get("greetings")
	if err != nil {
		return fmt.Errorf("get after delete failed: %w", err)
	}
	fmt.Printf("get greetings after delete => %s\n", string(item.Value))

	fmt.Println("gomemcache client works with the kusari text protocol subset")

	cancel()
	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server stop error: %w", err)
		}
	case <-time.After(3 * time.Second):
		return fmt.Errorf("server shutdown timeout")
	}

	return nil
}
