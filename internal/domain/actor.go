package domain

// ActorKind различает сотрудников студии и внешних клиентов
type ActorKind string

const (
	ActorKindUser   ActorKind = "USER"
	ActorKindClient ActorKind = "CLIENT"
)

// Actor определяется один раз на границе аутентификации и дальше передается как есть
type Actor struct {
	ID   string    `json:"id"`
	Kind ActorKind `json:"kind"`
}
