package di_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gocrud/compose/di"
)

type Database struct {
	DSN string
}

type ServiceWithNamedDB struct {
	Master *Database `di:"master"`
	Slave  *Database `di:"slave"`
}

type ServiceWithOptional struct {
	Required *Database `di:"master"`
	Optional *Database `di:"missing,?"`
}

type ServiceWithSimpleOptional struct {
	Optional *Database `di:"?"`
}

type Greeter interface {
	Greet() string
}

type englishGreeter struct{ name string }

func (g *englishGreeter) Greet() string { return "hello " + g.name }

type UserService struct {
	Greeter Greeter
	DB      *Database
}

func NewUserService(g Greeter, db *Database) *UserService {
	return &UserService{Greeter: g, DB: db}
}

func TestNamedInjection(t *testing.T) {
	c := di.NewContainer()

	require.NoError(t, di.Register[*Database](c, di.WithName("master"), di.WithValue(&Database{DSN: "master_dsn"})))
	require.NoError(t, di.Register[*Database](c, di.WithName("slave"), di.WithValue(&Database{DSN: "slave_dsn"})))
	require.NoError(t, di.Register[*ServiceWithNamedDB](c))

	svc, err := di.Resolve[*ServiceWithNamedDB](c)
	require.NoError(t, err)
	assert.Equal(t, "master_dsn", svc.Master.DSN)
	assert.Equal(t, "slave_dsn", svc.Slave.DSN)
}

func TestOptionalInjection(t *testing.T) {
	c := di.NewContainer()
	require.NoError(t, di.Register[*Database](c, di.WithName("master"), di.WithValue(&Database{DSN: "m"})))
	require.NoError(t, di.Register[*ServiceWithOptional](c))
	require.NoError(t, di.Register[*ServiceWithSimpleOptional](c))

	svc, err := di.Resolve[*ServiceWithOptional](c)
	require.NoError(t, err)
	assert.Equal(t, "m", svc.Required.DSN)
	assert.Nil(t, svc.Optional)

	// 无键可选：只有带键的注册时回退到它们
	simple, err := di.Resolve[*ServiceWithSimpleOptional](c)
	require.NoError(t, err)
	require.NotNil(t, simple.Optional)
	assert.Equal(t, "m", simple.Optional.DSN)
}

func TestRegister_RequiresProducerForInterface(t *testing.T) {
	c := di.NewContainer()
	err := di.Register[Greeter](c)
	require.ErrorIs(t, err, di.ErrInvalidProducer)

	require.NoError(t, di.Register[Greeter](c, di.WithFactory(func() Greeter { return &englishGreeter{name: "go"} })))
	g, err := di.Resolve[Greeter](c)
	require.NoError(t, err)
	assert.Equal(t, "hello go", g.Greet())
}

func TestUseImplementation(t *testing.T) {
	type impl struct {
		DB *Database `di:""`
	}
	c := di.NewContainer()
	require.NoError(t, di.RegisterValue(c, &Database{DSN: "x"}))
	require.NoError(t, di.Register[any](c, di.Use[*impl]()))

	v, err := di.Resolve[any](c)
	require.NoError(t, err)
	require.IsType(t, &impl{}, v)
	assert.Equal(t, "x", v.(*impl).DB.DSN)
}

func TestProvide(t *testing.T) {
	c := di.NewContainer()

	typ, err := di.Provide(c, &Database{DSN: "value"})
	require.NoError(t, err)
	assert.Equal(t, di.TypeOf[*Database](), typ)

	typ, err = di.Provide(c, func() Greeter { return &englishGreeter{name: "ctor"} })
	require.NoError(t, err)
	assert.Equal(t, di.TypeOf[Greeter](), typ)

	typ, err = di.Provide(c, NewUserService)
	require.NoError(t, err)
	assert.Equal(t, di.TypeOf[*UserService](), typ)

	_, err = di.Provide(c, di.TypeOf[*ServiceWithSimpleOptional]())
	require.NoError(t, err)

	svc := di.MustResolve[*UserService](c)
	assert.Equal(t, "value", svc.DB.DSN)
	assert.Equal(t, "hello ctor", svc.Greeter.Greet())

	_, err = di.Provide(c, nil)
	require.ErrorIs(t, err, di.ErrInvalidProducer)
}

func TestResolve_Unknown(t *testing.T) {
	c := di.NewContainer()

	_, err := di.Resolve[*Database](c)
	require.ErrorIs(t, err, di.ErrUnableToResolveUnknownService)

	var re *di.ResolutionError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, di.TypeOf[*Database](), re.ServiceType)

	db, err := di.TryResolve[*Database](c)
	require.NoError(t, err)
	assert.Nil(t, db)
}

func TestResolve_NestedUnknownReportsChain(t *testing.T) {
	c := di.NewContainer()
	require.NoError(t, di.Register[*UserService](c, di.WithConstructor(NewUserService)))
	require.NoError(t, di.RegisterValue[Greeter](c, &englishGreeter{}))

	_, err := di.Resolve[*UserService](c)
	require.ErrorIs(t, err, di.ErrUnableToResolveUnknownService)

	var re *di.ResolutionError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, di.TypeOf[*Database](), re.ServiceType)
	require.Len(t, re.Chain, 2)
	assert.Equal(t, di.TypeOf[*UserService](), re.Chain[0].Type)
	assert.Contains(t, err.Error(), "->")
}

func TestTokens(t *testing.T) {
	primary := di.NewToken[string]("dsn")
	secondary := di.NewToken[string]("dsn")

	c := di.NewContainer()
	require.NoError(t, di.RegisterValue(c, "primary", di.WithToken(primary)))
	require.NoError(t, di.RegisterValue(c, "secondary", di.WithToken(secondary)))

	v, err := di.ResolveToken(c, primary)
	require.NoError(t, err)
	assert.Equal(t, "primary", v)

	v, err = di.ResolveToken(c, secondary)
	require.NoError(t, err)
	assert.Equal(t, "secondary", v)

	assert.Equal(t, "Token[string](dsn)", primary.String())
}

func TestInject(t *testing.T) {
	c := di.NewContainer()
	require.NoError(t, di.RegisterValue(c, &Database{DSN: "default"}))
	require.NoError(t, di.RegisterValue(c, &Database{DSN: "replica"}, di.WithKey("replica")))

	var db *Database
	require.NoError(t, di.Inject(c, &db))
	assert.Equal(t, "default", db.DSN)

	require.NoError(t, di.Inject(c, &db, "replica"))
	assert.Equal(t, "replica", db.DSN)

	require.Error(t, di.Inject(c, db))
	assert.Panics(t, func() {
		var g Greeter
		di.MustInject(c, &g)
	})
}

func TestBind(t *testing.T) {
	c := di.NewContainer()
	require.NoError(t, di.RegisterFunc[*englishGreeter](c, func() *englishGreeter { return &englishGreeter{name: "bound"} }))
	require.NoError(t, di.Bind[Greeter, *englishGreeter](c))

	g, err := di.Resolve[Greeter](c)
	require.NoError(t, err)
	impl := di.MustResolve[*englishGreeter](c)
	assert.Same(t, impl, g)

	err = di.Bind[Greeter, *Database](c)
	require.ErrorIs(t, err, di.ErrRegisteredProducerTypeMismatch)
}

func TestInvoke(t *testing.T) {
	c := di.NewContainer()
	require.NoError(t, di.RegisterValue(c, &Database{DSN: "inv"}))

	out, err := c.Invoke(func(db *Database, prefix string) string {
		return prefix + db.DSN
	}, di.ArgValue(1, "dsn="))
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "dsn=inv", out[0])

	boom := errors.New("boom")
	_, err = c.Invoke(func(*Database) error { return boom })
	require.ErrorIs(t, err, boom)

	_, err = c.Invoke(func(Greeter) {})
	require.ErrorIs(t, err, di.ErrUnableToResolveUnknownService)
}

func TestRegister_NonComparableKey(t *testing.T) {
	c := di.NewContainer()
	err := di.RegisterValue(c, &Database{}, di.WithKey([]string{"x"}))
	require.ErrorIs(t, err, di.ErrInvalidProducer)
}

func TestRegister_ProducerGivenTwice(t *testing.T) {
	c := di.NewContainer()
	err := c.Register(di.TypeOf[*Database](), di.Constant(&Database{}), di.WithValue(&Database{}))
	require.ErrorIs(t, err, di.ErrInvalidProducer)
}

func TestStrictDefaults(t *testing.T) {
	c := di.NewContainer(di.WithStrictDefaults())
	require.NoError(t, di.RegisterValue(c, &Database{DSN: "a"}))
	require.NoError(t, di.RegisterValue(c, &Database{DSN: "b"}))

	_, err := di.Resolve[*Database](c)
	require.ErrorIs(t, err, di.ErrMultipleDefaultServices)

	require.NoError(t, di.RegisterValue(c, &Database{DSN: "c"}, di.AsDefault()))
	db, err := di.Resolve[*Database](c)
	require.NoError(t, err)
	assert.Equal(t, "c", db.DSN)
}

func TestDefaultSelection_LatestWins(t *testing.T) {
	c := di.NewContainer()
	require.NoError(t, di.RegisterValue(c, &Database{DSN: "first"}, di.AsDefault()))
	require.NoError(t, di.RegisterValue(c, &Database{DSN: "second"}))

	db := di.MustResolve[*Database](c)
	assert.Equal(t, "first", db.DSN)

	c2 := di.NewContainer()
	require.NoError(t, di.RegisterValue(c2, &Database{DSN: "first"}))
	require.NoError(t, di.RegisterValue(c2, &Database{DSN: "second"}))
	assert.Equal(t, "second", di.MustResolve[*Database](c2).DSN)
}

func TestDefaultScopeOption(t *testing.T) {
	c := di.NewContainer(di.WithDefaultScope(di.ScopeTransient))
	require.NoError(t, di.RegisterFunc[*Database](c, func() *Database { return &Database{} }))

	a := di.MustResolve[*Database](c)
	b := di.MustResolve[*Database](c)
	assert.NotSame(t, a, b)
}

func TestParseScopeType(t *testing.T) {
	for in, want := range map[string]di.ScopeType{
		"":          di.ScopeSingleton,
		"singleton": di.ScopeSingleton,
		"scoped":    di.ScopeScoped,
		"transient": di.ScopeTransient,
	} {
		got, err := di.ParseScopeType(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
		if in != "" {
			assert.Equal(t, in, got.String())
		}
	}
	_, err := di.ParseScopeType("forever")
	require.Error(t, err)
}
