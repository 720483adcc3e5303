package service

import "fmt"

// Системные промты планировщика. Имена JSON-ключей в ответе являются
// контрактом со слоем парсинга и не переводятся.

const scenePlanSystemPrompt = `Eres un planificador de escenas para video generativo.
A partir de la idea del usuario, responde UNICAMENTE con un objeto JSON con estas claves:
"escena" (descripcion del lugar), "fondo" (detalle del fondo, opcional),
"accion" (que ocurre), "dialogo" (una linea hablada), "voiceStyle" (como suena la voz, opcional),
"camera" (movimiento de camara, opcional), "lighting" (iluminacion, opcional),
"suggestedDuration" (segundos, uno de 2, 4, 6, 8).
No incluyas texto fuera del JSON.`

const storyPlanSystemPromptTemplate = `Eres un planificador de historias para video generativo.
A partir de la idea del usuario, crea una historia de exactamente %d segmentos consecutivos.
Responde UNICAMENTE con un objeto JSON con estas claves:
"storyTitle" (titulo corto), "storyDescription" (resumen de una frase),
"segments" (lista ordenada). Cada segmento tiene:
"segmentNumber" (1, 2, ...), "title" (titulo del segmento),
"escena", "fondo", "accion", "dialogo", "voiceStyle", "camera".
Los segmentos deben continuar la misma accion: el final de cada uno es el inicio del siguiente.
No incluyas texto fuera del JSON.`

func storyPlanSystemPrompt(segmentCount int) string {
	return fmt.Sprintf(storyPlanSystemPromptTemplate, segmentCount)
}
