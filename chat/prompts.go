package chat

import (
	"fmt"
	"strings"

	"github.com/hairizuanbinnoorazman/pageagent/agent"
	"github.com/hairizuanbinnoorazman/pageagent/pagedata"
)

const (
	maxKnowledgeRunes = 8000
	maxPageTextRunes  = 500
)

// systemPrompt is the agent's own prompt or the default assistant brief.
func systemPrompt(a *agent.Agent) string {
	if strings.TrimSpace(a.SystemPrompt) != "" {
		return a.SystemPrompt
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Ты - AI-ассистент для компании %q.\n\n", a.Name)
	fmt.Fprintf(&b, "Описание бизнеса: %s\n\n", sanitizeText(a.Description, 0))
	b.WriteString(`Твоя задача:
- Помогать посетителям сайта
- Отвечать на вопросы о компании и услугах
- Направлять пользователей к нужным действиям
- Быть дружелюбным и полезным
- АВТОМАТИЧЕСКИ ВЫПОЛНЯТЬ ДЕЙСТВИЯ НА САЙТЕ

🤖 ВОЗМОЖНОСТИ АВТОМАТИЗАЦИИ БРАУЗЕРА:
🖱️ Нажатие кнопок - "нажми войти", "кликни регистрация", "нажать попробовать бесплатно"
📝 Автоматическая регистрация - "зарегистрируй меня на email@example.com"
🧭 Навигация по сайту - "перейди на вход", "открой регистрацию"
📋 Заполнение форм - автоматически при регистрации

СТАНДАРТНЫЕ ДЕЙСТВИЯ:
🎫 Создание заявки - "создать заявку", "оставить заявку", "нужна помощь"
🔍 Поиск информации - "найди", "расскажи о", "что такое"
📧 Подписка на обновления - "подписаться", "уведомления"
📅 Запись на демо - "демо", "встреча", "презентация"
📞 Получение контактов - "контакты", "связаться", "телефон"

`)
	fmt.Fprintf(&b, "Стиль общения: %s\n", responseStyle(a))
	if kb := sanitizeText(a.KnowledgeBase, maxKnowledgeRunes); kb != "" {
		fmt.Fprintf(&b, "\nБаза знаний компании:\n%s\n", kb)
	}
	b.WriteString(`
ВАЖНО:
- Ты можешь АВТОМАТИЧЕСКИ нажимать кнопки и выполнять действия на сайте
- Когда пользователь просит нажать кнопку - ты это делаешь автоматически
- Когда просят зарегистрировать - ты заполняешь форму и отправляешь её
- Отвечай кратко и по существу
- Используй информацию из базы знаний, если она релевантна
- Если не знаешь ответа, честно скажи об этом
- Отвечай на русском языке`)
	return b.String()
}

// contextualSystemPrompt describes the visitor's current page to the model.
func contextualSystemPrompt(a *agent.Agent, snap *pagedata.Snapshot, description string, hasScreenshot bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Ты - ИИ-ассистент для %s.\n", a.Name)
	if desc := sanitizeText(a.Description, 0); desc != "" {
		b.WriteString(desc + "\n")
	}

	if hasScreenshot {
		b.WriteString("\nВАЖНО: Ты видишь текущую страницу пользователя и можешь помочь с навигацией!\n")
	} else {
		b.WriteString("\nВАЖНО: Пользователь находится на странице, но визуальный анализ временно недоступен.\n")
	}

	b.WriteString("\nИнформация о текущей странице:\n")
	fmt.Fprintf(&b, "- Заголовок: %s\n", snap.Title)
	fmt.Fprintf(&b, "- URL: %s\n", snap.URL)
	fmt.Fprintf(&b, "- Доступные кнопки: %s\n", joinOr(snap.Buttons, "не определены"))
	fmt.Fprintf(&b, "- Заголовки: %s\n", joinOr(snap.Headings, "не определены"))
	fmt.Fprintf(&b, "- Количество форм: %d\n", len(snap.Forms))
	fmt.Fprintf(&b, "- Количество ссылок: %d\n", len(snap.Links))
	fmt.Fprintf(&b, "\nОписание страницы: %s\n", sanitizeText(description, 0))

	if kb := sanitizeText(a.KnowledgeBase, maxKnowledgeRunes); kb != "" {
		fmt.Fprintf(&b, "\nБаза знаний:\n%s\n", kb)
	}

	b.WriteString("\nТы можешь:\n")
	if hasScreenshot {
		b.WriteString("1. Объяснить что находится на текущей странице\n")
	} else {
		b.WriteString("1. Предоставить общую информацию о странице\n")
	}
	b.WriteString(`2. Подсказать какие кнопки нажать (если они определены)
3. Помочь заполнить формы (если они есть)
4. Направить к нужному разделу
5. Ответить на вопросы о продукте/услуге
`)
	if a.SystemPrompt != "" {
		fmt.Fprintf(&b, "\n%s\n", a.SystemPrompt)
	}
	fmt.Fprintf(&b, "\nСтиль ответов: %s\n", responseStyle(a))
	b.WriteString("\nОтвечай на русском языке, используя доступную информацию о текущей странице для более точной помощи.")
	return b.String()
}

func contextualQuestion(snap *pagedata.Snapshot, question string, hasScreenshot bool) string {
	if hasScreenshot {
		return fmt.Sprintf("Пользователь находится на странице %q и спрашивает: %s", snap.Title, question)
	}
	return fmt.Sprintf("Пользователь находится на странице %q (%s) и спрашивает: %s", snap.Title, snap.URL, question)
}

// withPageHint appends the page the visitor reported when no analysis was possible.
func withPageHint(message, title, url string) string {
	if title == "" {
		return message
	}
	return fmt.Sprintf("%s\n\nКонтекст: Пользователь находится на странице %q (%s)", message, title, url)
}

const visionSystemPrompt = `Ты ИИ-ассистент, который анализирует веб-страницы.
Твоя задача: понять что происходит на странице по скриншоту и данным.

Проанализируй изображение и данные страницы, опиши:
1. Что это за страница (главная, каталог, контакты и т.д.)
2. Какие основные элементы есть на странице (кнопки, формы, меню)
3. Какую информацию ищет или может искать пользователь
4. Какие действия может выполнить пользователь

Отвечай кратко и информативно на русском языке.`

func visionPrompt(snap *pagedata.Snapshot) string {
	var b strings.Builder
	b.WriteString("Данные страницы:\n")
	fmt.Fprintf(&b, "Заголовок: %s\n", snap.Title)
	fmt.Fprintf(&b, "URL: %s\n", snap.URL)
	fmt.Fprintf(&b, "Основные кнопки: %s\n", strings.Join(snap.Buttons, ", "))
	fmt.Fprintf(&b, "Заголовки разделов: %s\n", strings.Join(snap.Headings, ", "))
	fmt.Fprintf(&b, "Формы: %d шт.\n", len(snap.Forms))
	fmt.Fprintf(&b, "Ссылки: %d шт.\n", len(snap.Links))
	fmt.Fprintf(&b, "\nОсновной текст: %s...\n\n", sanitizeText(snap.Text, maxPageTextRunes))
	b.WriteString("Проанализируй эту страницу по скриншоту.")
	return b.String()
}

func responseStyle(a *agent.Agent) string {
	if a.ResponseStyle == "" {
		return string(agent.StyleHelpful)
	}
	return string(a.ResponseStyle)
}

func joinOr(items []string, empty string) string {
	if len(items) == 0 {
		return empty
	}
	return strings.Join(items, ", ")
}
