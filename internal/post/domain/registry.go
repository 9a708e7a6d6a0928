package domain

import (
	"reflect"

	sharedEvents "github.com/davicafu/postlab/internal/shared/events"
)

// Las constantes de los tipos de evento se definen aquí, como valores string.
const (
	PostCreated = "post.created"
	PostUpdated = "post.updated"
	PostDeleted = "post.deleted"
)

const (
	PostTopic         = "post"
	PostAggregateType = "Post"
)

func NewEventRegistry() sharedEvents.Registry {
	return sharedEvents.Registry{
		PostCreated: {
			Type:  reflect.TypeOf(sharedEvents.PostCreated{}),
			Topic: PostTopic,
		},
		PostUpdated: {
			Type:  reflect.TypeOf(sharedEvents.PostUpdated{}),
			Topic: PostTopic,
		},
		PostDeleted: {
			Type:  reflect.TypeOf(sharedEvents.PostDeleted{}),
			Topic: PostTopic,
		},
	}
}
