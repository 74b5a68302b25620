package chat

import "errors"

var (
	ErrRetrieverRequired   = errors.New("retriever is required")
	ErrRecommenderRequired = errors.New("recommender is required")
	ErrChatModelRequired   = errors.New("chat model is required")
	ErrEmptyMessage        = errors.New("message is empty")
)
