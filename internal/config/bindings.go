package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

const masked = "****************"

// binding ties one environment variable to one field of a config record.
type binding[T any] struct {
	env    string
	secret bool
	get    func(c *T) string
	set    func(c *T, value string) error
}

func stringVar[T any](env string, field func(c *T) *string) binding[T] {
	return binding[T]{
		env: env,
		get: func(c *T) string { return *field(c) },
		set: func(c *T, value string) error {
			*field(c) = value
			return nil
		},
	}
}

func secretVar[T any](env string, field func(c *T) *string) binding[T] {
	b := stringVar(env, field)
	b.secret = true
	return b
}

func intVar[T any](env string, field func(c *T) *int) binding[T] {
	return binding[T]{
		env: env,
		get: func(c *T) string { return strconv.Itoa(*field(c)) },
		set: func(c *T, value string) error {
			n, err := strconv.Atoi(value)
			if err != nil {
				return err
			}
			*field(c) = n
			return nil
		},
	}
}

func floatVar[T any](env string, field func(c *T) *float64) binding[T] {
	return binding[T]{
		env: env,
		get: func(c *T) string { return strconv.FormatFloat(*field(c), 'f', -1, 64) },
		set: func(c *T, value string) error {
			f, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return err
			}
			*field(c) = f
			return nil
		},
	}
}

func boolVar[T any](env string, field func(c *T) *bool) binding[T] {
	return binding[T]{
		env: env,
		get: func(c *T) string {
			if *field(c) {
				return "1"
			}
			return "0"
		},
		set: func(c *T, value string) error {
			b, err := strconv.ParseBool(value)
			if err != nil {
				return err
			}
			*field(c) = b
			return nil
		},
	}
}

// Environment looks up variables in the process environment first, then in
// the variables read from a dotenv file.
type Environment struct {
	Lookup func(key string) (string, bool)
	DotEnv map[string]string
}

// ReadEnvironment returns the process environment backed by the dotenv file
// at path. A missing dotenv file is not an error.
func ReadEnvironment(path string) (Environment, error) {
	env := Environment{Lookup: os.LookupEnv}
	if path == "" {
		return env, nil
	}
	dotenv, err := godotenv.Read(path)
	if err != nil && !os.IsNotExist(err) {
		return Environment{}, fmt.Errorf("%s: %w", path, err)
	}
	env.DotEnv = dotenv
	return env, nil
}

func (e Environment) get(key string) (string, bool) {
	if e.Lookup != nil {
		if value, ok := e.Lookup(key); ok {
			return value, true
		}
	}
	value, ok := e.DotEnv[key]
	return value, ok
}

func applyEnvironment[T any](c *T, bindings []binding[T], env Environment) error {
	for _, b := range bindings {
		value, ok := env.get(b.env)
		if !ok {
			continue
		}
		if err := b.set(c, value); err != nil {
			return fmt.Errorf("%s: %w", b.env, err)
		}
	}
	return nil
}

// dump renders c in dotenv format, secrets are masked unless reveal is set.
func dump[T any](c *T, bindings []binding[T], reveal bool) (string, error) {
	values := make(map[string]string, len(bindings))
	for _, b := range bindings {
		value := b.get(c)
		if b.secret && !reveal && value != "" {
			value = masked
		}
		values[b.env] = value
	}
	return godotenv.Marshal(values)
}
