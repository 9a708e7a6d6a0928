package application

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/davicafu/postlab/internal/post/domain"
)

type samplePost struct {
	title, description, body string
	tags                     []string
	categoryID               int64
}

// Catálogo de ejemplo; las categorías se identifican por número.
var samplePosts = []samplePost{
	{"Primeros pasos con Go", "Tipos, paquetes y módulos.", "Un recorrido por la sintaxis básica y el toolchain.", []string{"go", "tutorial"}, 1},
	{"APIs REST con gin", "Rutas, binding y validación.", "Cómo organizar handlers y middlewares en un servicio HTTP.", []string{"go", "gin", "api"}, 2},
	{"Paginación keyset", "Cursores estables bajo empates.", "Por qué OFFSET degrada y cómo un cursor compuesto lo evita.", []string{"sql", "pagination"}, 2},
	{"Validar una idea de negocio", "Experimentos antes de construir.", "Entrevistas, landing pages y métricas de interés.", []string{"startup", "mvp"}, 5},
	{"Finanzas personales", "Presupuesto y fondo de emergencia.", "Hábitos sencillos para los primeros años de carrera.", []string{"finance"}, 7},
	{"Trabajar en remoto desde Lisboa", "Coste de vida y coworkings.", "Visados, conectividad y comunidad para nómadas digitales.", []string{"travel", "remote-work"}, 9},
	{"Cenas rápidas entre semana", "Recetas en menos de 30 minutos.", "Salteados, pastas y platos de una sola sartén.", []string{"cooking", "recipes"}, 10},
	{"Aprender con cursos online", "Cómo elegir y terminar un curso.", "Planificación, práctica y proyectos propios.", []string{"education"}, 18},
}

// SeedAuthors son los autores fijos que usa el seed por defecto.
var SeedAuthors = []uuid.UUID{
	uuid.MustParse("3f1c2a9e-8b7d-4c6e-9a51-0d2b7e4f6a10"),
	uuid.MustParse("b6e0d3c4-1a2f-4e8b-8c7d-5f9a0b1c2d3e"),
}

// Seed crea count posts a través del servicio, repartidos entre authors, para
// que cada uno genere su evento de outbox.
func Seed(ctx context.Context, svc *PostService, authors []uuid.UUID, count int) (int, error) {
	if len(authors) == 0 {
		authors = SeedAuthors
	}
	created := 0
	for i := 0; i < count; i++ {
		sample := samplePosts[i%len(samplePosts)]
		title := sample.title
		if round := i / len(samplePosts); round > 0 {
			title = fmt.Sprintf("%s (%d)", title, round+1)
		}
		_, err := svc.CreatePost(ctx, authors[i%len(authors)], domain.PostInput{
			Title:       title,
			Description: sample.description,
			Body:        sample.body,
			Tags:        sample.tags,
			CategoryID:  sample.categoryID,
		})
		if err != nil {
			return created, fmt.Errorf("seed post %d: %w", i, err)
		}
		created++
	}
	svc.log.Info("Seed completed", zap.Int("posts", created))
	return created, nil
}
