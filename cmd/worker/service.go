package main

import "context"

// ImagePurger - удаление файлов по URL у провайдеров, ошибки только логируются
type ImagePurger interface {
	Purge(ctx context.Context, urls []string)
}
