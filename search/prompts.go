package search

const imageKeywordsPrompt = `You are helping someone find videos in a library by describing a picture.

Look at the attached image and list the keywords that best describe what it shows:
objects, people, places, actions, visible text and the overall subject.

Rules:
- Use between 3 and 10 keywords.
- Each keyword is a single word or a short phrase.
- Do not explain your answer.

Respond with a JSON array of strings inside a fenced code block, for example:

` + "```json" + `
["kitchen", "chopping onions", "chef"]
` + "```"
