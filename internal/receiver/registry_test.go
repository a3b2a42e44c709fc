package receiver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nopFactory(Deps, Options) (Receiver, error) {
	return Func(func(context.Context) error { return nil }), nil
}

func otherFactory(Deps, Options) (Receiver, error) {
	return Func(func(context.Context) error { return errors.New("other") }), nil
}

func TestResolveIsCaseInsensitive(t *testing.T) {
	r := NewRegistry(zerolog.Nop())
	r.Register("Echo", nopFactory)

	for _, name := range []string{"echo", "ECHO", "Echo"} {
		f, err := r.Resolve(name)
		require.NoError(t, err, name)
		require.NotNil(t, f)
	}
	assert.Equal(t, []string{"echo"}, r.Names())
}

func TestResolveUnknown(t *testing.T) {
	r := NewRegistry(zerolog.Nop())

	_, err := r.Resolve("SensorPoll")
	require.Error(t, err)

	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "SensorPoll", nf.Name)
	assert.Contains(t, err.Error(), `"SensorPoll"`)
}

func TestRegisterCollisionWarnsAndReplaces(t *testing.T) {
	var buf bytes.Buffer
	r := NewRegistry(zerolog.New(&buf))

	r.Register("Foo", nopFactory)
	r.Register("foo", otherFactory)

	assert.Contains(t, buf.String(), `"level":"warn"`)
	assert.Contains(t, buf.String(), "nopFactory")
	assert.Contains(t, buf.String(), "otherFactory")

	f, err := r.Resolve("FOO")
	require.NoError(t, err)
	rcv, err := f(Deps{}, nil)
	require.NoError(t, err)
	assert.EqualError(t, rcv.Run(context.Background()), "other")
}

func pluginFactory(label string) Factory {
	return func(Deps, Options) (Receiver, error) {
		return Func(func(context.Context) error { return errors.New(label) }), nil
	}
}

func TestRegisterClosuresFromOneHelperWarn(t *testing.T) {
	var buf bytes.Buffer
	r := NewRegistry(zerolog.New(&buf))

	r.Register("sensor", pluginFactory("first"))
	r.Register("Sensor", pluginFactory("second"))

	assert.Contains(t, buf.String(), "overwriting registered receiver")
	f, err := r.Resolve("SENSOR")
	require.NoError(t, err)
	rcv, err := f(Deps{}, nil)
	require.NoError(t, err)
	assert.EqualError(t, rcv.Run(context.Background()), "second")
}

func TestRegisterSameFactoryTwiceWarns(t *testing.T) {
	var buf bytes.Buffer
	r := NewRegistry(zerolog.New(&buf))

	r.Register("echo", nopFactory)
	r.Register("ECHO", nopFactory)

	assert.Contains(t, buf.String(), `"name":"echo"`)
}

func TestDefaultRegistryUsesCurrentGlobalLogger(t *testing.T) {
	prev := log.Logger
	defer func() { log.Logger = prev }()

	var buf bytes.Buffer
	log.Logger = zerolog.New(&buf)

	Register("registry-test-collision", nopFactory)
	Register("Registry-Test-Collision", otherFactory)

	assert.Contains(t, buf.String(), "overwriting registered receiver")
}

func TestRegisterResolveConcurrently(t *testing.T) {
	r := NewRegistry(zerolog.Nop())
	r.Register("base", nopFactory)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				r.Register(fmt.Sprintf("plugin-%d-%d", i, j), nopFactory)
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_, err := r.Resolve("BASE")
				assert.NoError(t, err)
				_ = r.Names()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, r.Names(), 8*100+1)
}

func TestRegisterNilPanics(t *testing.T) {
	r := NewRegistry(zerolog.Nop())
	assert.Panics(t, func() { r.Register("x", nil) })
}
